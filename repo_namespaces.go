package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Namespaces stores per user data partitions and their documents
type Namespaces interface {
	Ensure(ctx context.Context, owner string) (*Namespace, bool, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Namespace, error)
	Documents(ctx context.Context, name string) ([]*Document, error)
	AddDocument(ctx context.Context, name string, data map[string]any) (*Document, error)
}

type namespaces struct {
	db  *bun.DB
	now func() time.Time
}

var _ Namespaces = (*namespaces)(nil)

func NewNamespacesRepository(db *bun.DB) Namespaces {
	return &namespaces{db: db, now: time.Now}
}

// Ensure creates the namespace owned by owner if missing. The returned flag
// is true only for the call that actually created it.
func (n *namespaces) Ensure(ctx context.Context, owner string) (*Namespace, bool, error) {
	name, err := NamespaceName(owner)
	if err != nil {
		return nil, false, err
	}

	id, err := NamespaceID(name)
	if err != nil {
		return nil, false, StoreError(err, "failed to derive namespace id")
	}

	now := n.now()
	record := &Namespace{
		ID:        id,
		Name:      name,
		Owner:     owner,
		CreatedAt: &now,
	}

	res, err := n.db.NewInsert().
		Model(record).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, StoreError(err, "failed to create namespace")
	}

	created := true
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		created = false
	}

	return record, created, nil
}

func (n *namespaces) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := n.db.NewSelect().
		Model((*Namespace)(nil)).
		Where("?TableAlias.name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, StoreError(err, "failed to check namespace")
	}
	return exists, nil
}

func (n *namespaces) List(ctx context.Context) ([]*Namespace, error) {
	records := []*Namespace{}
	if err := n.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx); err != nil {
		return nil, StoreError(err, "failed to list namespaces")
	}
	return records, nil
}

func (n *namespaces) Documents(ctx context.Context, name string) ([]*Document, error) {
	exists, err := n.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNamespaceNotFound(name)
	}

	records := []*Document{}
	if err := n.db.NewSelect().
		Model(&records).
		Where("?TableAlias.namespace = ?", name).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx); err != nil {
		return nil, StoreError(err, "failed to list documents")
	}
	return records, nil
}

func (n *namespaces) AddDocument(ctx context.Context, name string, data map[string]any) (*Document, error) {
	exists, err := n.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNamespaceNotFound(name)
	}

	now := n.now()
	doc := &Document{
		ID:        uuid.New(),
		Namespace: name,
		Data:      data,
		CreatedAt: &now,
	}

	if _, err := n.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		return nil, StoreError(err, "failed to add document")
	}
	return doc, nil
}
