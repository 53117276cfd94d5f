package registry

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Voters is the voter record store, voters are plain CRUD records
type Voters interface {
	Create(ctx context.Context, voter *Voter) (*Voter, error)
	List(ctx context.Context) ([]*Voter, error)
	Get(ctx context.Context, id string) (*Voter, error)
	Update(ctx context.Context, id string, patch VoterPatch) (*Voter, error)
}

// VoterPatch holds the fields an update may change, nil fields are left as stored
type VoterPatch struct {
	Name         *string
	Constituency *string
}

type voters struct {
	repo repository.Repository[*Voter]
	db   *bun.DB
	now  func() time.Time
}

var _ Voters = (*voters)(nil)

func NewVotersRepository(db *bun.DB) Voters {
	repo := repository.NewRepository[*Voter](db, repository.ModelHandlers[*Voter]{
		NewRecord: func() *Voter { return &Voter{} },
		GetID: func(v *Voter) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *Voter, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &voters{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
}

func (v *voters) Create(ctx context.Context, voter *Voter) (*Voter, error) {
	if voter.ID == uuid.Nil {
		voter.ID = uuid.New()
	}

	now := v.now()
	voter.CreatedAt = &now
	voter.UpdatedAt = &now

	created, err := v.repo.Create(ctx, voter)
	if err != nil {
		return nil, StoreError(err, "failed to create voter")
	}
	return created, nil
}

func (v *voters) List(ctx context.Context) ([]*Voter, error) {
	records := []*Voter{}
	if err := v.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx); err != nil {
		return nil, StoreError(err, "failed to list voters")
	}
	return records, nil
}

// Get loads a voter by id, a malformed id is reported as not found
func (v *voters) Get(ctx context.Context, id string) (*Voter, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrVoterNotFound(id)
	}

	record := &Voter{}
	if err := v.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx); err != nil {
		if isNotFound(err) {
			return nil, ErrVoterNotFound(id)
		}
		return nil, StoreError(err, "failed to load voter")
	}

	return record, nil
}

// Update only touches name and constituency, extra fields stay as created.
// An empty patch returns the stored voter.
func (v *voters) Update(ctx context.Context, id string, patch VoterPatch) (*Voter, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrVoterNotFound(id)
	}

	if patch.Name == nil && patch.Constituency == nil {
		return v.Get(ctx, id)
	}

	q := v.db.NewUpdate().
		Model((*Voter)(nil)).
		Set("updated_at = ?", v.now()).
		Where("id = ?", uid)
	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.Constituency != nil {
		q = q.Set("constituency = ?", *patch.Constituency)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, StoreError(err, "failed to update voter")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrVoterNotFound(id)
	}

	return v.Get(ctx, id)
}
