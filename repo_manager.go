package registry

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Voters() Voters
	Namespaces() Namespaces
	Sessions() Sessions
}

type mngr struct {
	db         *bun.DB
	users      Users
	voters     Voters
	namespaces Namespaces
	sessions   Sessions
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db),
		voters:     NewVotersRepository(db),
		namespaces: NewNamespacesRepository(db),
		sessions:   NewSessionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.voters == nil {
		return errors.New("repository voters should be initialized")
	}

	if m.namespaces == nil {
		return errors.New("repository namespaces should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Voters() Voters {
	return m.voters
}

func (m mngr) Namespaces() Namespaces {
	return m.namespaces
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}
