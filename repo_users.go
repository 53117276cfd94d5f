package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]
	StatusUpdater

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetNonAdminByUsername(ctx context.Context, username string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	ListByConstituency(ctx context.Context, constituency string, statuses ...UserStatus) ([]*User, error)
	ListAll(ctx context.Context) ([]*User, error)
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.getByUsernameTx(ctx, a.db, username)
}

// getByUsernameTx matches the username exactly, case sensitive
func (a *users) getByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound(username)
		}
		return nil, StoreError(err, "failed to load user")
	}

	return record, nil
}

// GetNonAdminByUsername is the lookup used for approve and refuse,
// admins are reported as not found
func (a *users) GetNonAdminByUsername(ctx context.Context, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Where("?TableAlias.user_role != ?", RoleAdmin).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound(username)
		}
		return nil, StoreError(err, "failed to load user")
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. The username is checked up front and the
// unique index catches the race between two concurrent signups.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if _, err := a.getByUsernameTx(ctx, tx, user.Username); err == nil {
		return nil, ErrUsernameTaken(user.Username)
	} else if !HasTextCode(err, TextCodeUserNotFound) {
		return nil, err
	}

	a.prepareUserDefaults(user)

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken(user.Username)
		}
		return nil, StoreError(err, "failed to create user")
	}

	return created, nil
}

func (a *users) UpdateStatus(ctx context.Context, user *User, status UserStatus) (*User, error) {
	return a.updateStatusTx(ctx, a.db, user, status)
}

// updateStatusTx writes the status by id without checking the stored value,
// concurrent writers race and the last write wins
func (a *users) updateStatusTx(ctx context.Context, tx bun.IDB, user *User, status UserStatus) (*User, error) {
	now := a.now()
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return nil, StoreError(err, "failed to update user status")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrUserNotFound(user.Username)
	}

	updated := *user
	updated.Status = status
	updated.UpdatedAt = &now
	return &updated, nil
}

// ListByConstituency returns the non admin users of a constituency
// filtered by status, ordered by username
func (a *users) ListByConstituency(ctx context.Context, constituency string, statuses ...UserStatus) ([]*User, error) {
	records := []*User{}
	q := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.constituency = ?", constituency).
		Where("?TableAlias.user_role != ?", RoleAdmin).
		OrderExpr("?TableAlias.username ASC")

	if len(statuses) > 0 {
		q = q.Where("?TableAlias.status IN (?)", bun.In(statuses))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, StoreError(err, "failed to list users")
	}

	return records, nil
}

func (a *users) ListAll(ctx context.Context) ([]*User, error) {
	records := []*User{}
	if err := a.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx); err != nil {
		return nil, StoreError(err, "failed to list users")
	}
	return records, nil
}

func (a *users) prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandard
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := a.now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
