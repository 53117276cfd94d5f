package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-voter-registry/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueIndexViolationIsDetected(t *testing.T) {
	ctx := context.Background()

	db, err := persistence.Open(persistence.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.Migrate(ctx, db, GetMigrationsFS(), MigrationsDir))

	repo := NewUsersRepository(db)

	first := &User{Username: "bob", PasswordHash: "x", Constituency: "District1"}
	_, err = repo.Register(ctx, first)
	require.NoError(t, err)

	// bypass the lookup in Register so the insert hits the unique index
	dup := &User{
		ID:           uuid.New(),
		Username:     "bob",
		PasswordHash: "y",
		Role:         RoleStandard,
		Constituency: "District1",
		Status:       UserStatusPending,
	}
	_, err = repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), err.Error())

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}
