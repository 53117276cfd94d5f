package registry

import (
	"context"
)

// Identity is the caller as seen by the authorization gate, built from the
// session snapshot
type Identity struct {
	UserID       string   `json:"id"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
	Constituency string   `json:"constituency"`
}

// IsAdmin reports whether the identity carries the admin role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// HasRole returns true when no role is required or the identity matches one of them
func (i *Identity) HasRole(required ...UserRole) bool {
	if i == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if i.Role == r {
			return true
		}
	}
	return false
}

// Dashboard is the admin view of its own constituency
type Dashboard struct {
	PendingUsers  []*User `json:"pendingUsers"`
	AcceptedUsers []*User `json:"acceptedUsers"`
}

// Gate resolves session tokens into identities and enforces roles
type Gate struct {
	sessions Sessions
	users    Users
	logger   Logger
}

// GateOption customizes the gate
type GateOption func(*Gate)

func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGate(repos RepositoryManager, opts ...GateOption) *Gate {
	g := &Gate{
		sessions: repos.Sessions(),
		users:    repos.Users(),
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Authorize returns the identity behind token. A missing, unknown or expired
// session fails with ErrUnauthenticated, a role mismatch with ErrUnauthorized.
func (g *Gate) Authorize(ctx context.Context, token string, required ...UserRole) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	session, err := g.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	identity := session.Identity()
	if !identity.HasRole(required...) {
		g.logger.Debug("authorize role mismatch",
			"username", identity.Username,
			"role", identity.Role.String(),
		)
		return nil, ErrUnauthorized
	}

	return identity, nil
}

// AdminDashboard lists the non admin users of the admin's constituency,
// split by status. Refused users are not listed.
func (g *Gate) AdminDashboard(ctx context.Context, identity *Identity) (*Dashboard, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if !identity.IsAdmin() {
		return nil, ErrUnauthorized
	}

	records, err := g.users.ListByConstituency(ctx, identity.Constituency, UserStatusPending, UserStatusAccepted)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		PendingUsers:  []*User{},
		AcceptedUsers: []*User{},
	}
	for _, u := range records {
		switch u.Status {
		case UserStatusPending:
			dash.PendingUsers = append(dash.PendingUsers, u)
		case UserStatusAccepted:
			dash.AcceptedUsers = append(dash.AcceptedUsers, u)
		}
	}

	return dash, nil
}
