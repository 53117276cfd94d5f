package registry_test

import (
	"context"
	"testing"
	"time"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/goliatone/go-voter-registry/persistence"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type testConfig struct {
	prefix  string
	ttl     time.Duration
	origins string
}

func (c testConfig) GetRoutePrefix() string       { return c.prefix }
func (c testConfig) GetSessionCookieName() string { return "registry_session" }
func (c testConfig) GetSessionTTL() time.Duration { return c.ttl }
func (c testConfig) GetSessionSecure() bool       { return false }
func (c testConfig) GetCORSOrigins() string       { return c.origins }
func (c testConfig) GetBcryptCost() int           { return bcrypt.MinCost }
func (c testConfig) GetMetricsEnabled() bool      { return false }

func newTestConfig() testConfig {
	return testConfig{prefix: "/api", ttl: time.Hour, origins: "*"}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := persistence.Open(persistence.DriverSQLite, ":memory:")
	require.NoError(t, err)

	err = persistence.Migrate(context.Background(), db, registry.GetMigrationsFS(), registry.MigrationsDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

type fixture struct {
	db        *bun.DB
	repos     registry.RepositoryManager
	lifecycle *registry.Lifecycle
	gate      *registry.Gate
	browser   *registry.Browser
	sink      *capturingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	repos := registry.NewRepositoryManager(db)
	sink := &capturingSink{}

	return &fixture{
		db:    db,
		repos: repos,
		lifecycle: registry.NewLifecycle(repos,
			registry.WithLifecycleActivitySink(sink),
			registry.WithBcryptCost(bcrypt.MinCost),
			registry.WithSessionTTL(time.Hour),
		),
		gate:    registry.NewGate(repos),
		browser: registry.NewBrowser(repos),
		sink:    sink,
	}
}

func (f *fixture) signup(t *testing.T, username string, role registry.UserRole, constituency string) (*registry.User, *registry.SessionRecord) {
	t.Helper()
	user, session, err := f.lifecycle.Signup(context.Background(), registry.Registration{
		Username:     username,
		Password:     "pw-" + username,
		Role:         role,
		Constituency: constituency,
	})
	require.NoError(t, err)
	return user, session
}

func (f *fixture) admin(t *testing.T, username, constituency string) (*registry.Identity, *registry.SessionRecord) {
	t.Helper()
	_, session := f.signup(t, username, registry.RoleAdmin, constituency)
	require.NotNil(t, session)
	return session.Identity(), session
}
