package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions keeps server side session snapshots keyed by an opaque token
type Sessions interface {
	Create(ctx context.Context, user *User, ttl time.Duration) (*SessionRecord, error)
	Get(ctx context.Context, token string) (*SessionRecord, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessions struct {
	db  *bun.DB
	now func() time.Time
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{db: db, now: time.Now}
}

func (s *sessions) Create(ctx context.Context, user *User, ttl time.Duration) (*SessionRecord, error) {
	now := s.now().UTC()
	record := &SessionRecord{
		Token:        uuid.NewString(),
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		Constituency: user.Constituency,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, StoreError(err, "failed to create session")
	}

	return record, nil
}

// Get returns the live session for token. Unknown and expired tokens
// are both reported as ErrUnauthenticated.
func (s *sessions) Get(ctx context.Context, token string) (*SessionRecord, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	record := &SessionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, StoreError(err, "failed to load session")
	}

	if record.Expired(s.now()) {
		return nil, ErrUnauthenticated
	}

	return record, nil
}

func (s *sessions) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("token = ?", token).
		Exec(ctx); err != nil {
		return StoreError(err, "failed to delete session")
	}
	return nil
}

func (s *sessions) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return StoreError(err, "failed to delete user sessions")
	}
	return nil
}

func (s *sessions) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("expires_at <= ?", s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, StoreError(err, "failed to delete expired sessions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
