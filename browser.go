package registry

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CollectionUsers  = "users"
	CollectionVoters = "voters"

	CollectionKindSystem    = "system"
	CollectionKindNamespace = "namespace"
)

// CollectionInfo describes a browsable collection
type CollectionInfo struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Owner string `json:"owner,omitempty"`
}

// Browser exposes read access to the stored collections for admins
// and to the caller's own namespace for everybody else
type Browser struct {
	repos  RepositoryManager
	logger Logger
}

type BrowserOption func(*Browser)

func WithBrowserLogger(logger Logger) BrowserOption {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBrowser(repos RepositoryManager, opts ...BrowserOption) *Browser {
	b := &Browser{
		repos:  repos,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Collections lists the system collections followed by every namespace.
// Sessions are never listed.
func (b *Browser) Collections(ctx context.Context) ([]CollectionInfo, error) {
	out := []CollectionInfo{
		{Name: CollectionUsers, Kind: CollectionKindSystem},
		{Name: CollectionVoters, Kind: CollectionKindSystem},
	}

	namespaces, err := b.repos.Namespaces().List(ctx)
	if err != nil {
		return nil, err
	}

	for _, ns := range namespaces {
		out = append(out, CollectionInfo{
			Name:  ns.Name,
			Kind:  CollectionKindNamespace,
			Owner: ns.Owner,
		})
	}

	return out, nil
}

// Collection returns every document of the named collection. Any failure,
// including an unknown name, surfaces as a generic store error.
func (b *Browser) Collection(ctx context.Context, name string) ([]any, error) {
	docs, err := b.collection(ctx, name)
	if err != nil {
		b.logger.Error("collection browse failed", "collection", name, "error", err)
		return nil, genericStoreError(name, err)
	}
	return docs, nil
}

func (b *Browser) collection(ctx context.Context, name string) ([]any, error) {
	switch name {
	case CollectionUsers:
		records, err := b.repos.Users().ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return toAnySlice(records), nil
	case CollectionVoters:
		records, err := b.repos.Voters().List(ctx)
		if err != nil {
			return nil, err
		}
		return toAnySlice(records), nil
	default:
		records, err := b.repos.Namespaces().Documents(ctx, name)
		if err != nil {
			return nil, err
		}
		return toAnySlice(records), nil
	}
}

// UserData returns the documents of the caller's namespace, empty when
// the namespace does not exist yet
func (b *Browser) UserData(ctx context.Context, identity *Identity) ([]*Document, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	name, err := NamespaceName(identity.Username)
	if err != nil {
		return nil, err
	}

	docs, err := b.repos.Namespaces().Documents(ctx, name)
	if err != nil {
		if HasTextCode(err, TextCodeNamespaceNotFound) {
			return []*Document{}, nil
		}
		return nil, err
	}

	return docs, nil
}

// AddUserDocument appends data to the caller's namespace
func (b *Browser) AddUserDocument(ctx context.Context, identity *Identity, data map[string]any) (*Document, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	name, err := NamespaceName(identity.Username)
	if err != nil {
		return nil, err
	}

	return b.repos.Namespaces().AddDocument(ctx, name, data)
}

func toAnySlice[T any](records []T) []any {
	out := make([]any, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out
}

func genericStoreError(name string, err error) error {
	if HasTextCode(err, TextCodeStoreError) {
		return err
	}
	return goerrors.New("failed to browse collection", goerrors.CategoryInternal).
		WithTextCode(TextCodeStoreError).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{"collection": name})
}
