package registry

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const defaultSessionTTL = 24 * time.Hour

// Registration carries the fields needed to create an account
type Registration struct {
	Username     string
	Password     string
	Role         UserRole
	Constituency string
}

// LoginResult is the authenticated user and the session created for it
type LoginResult struct {
	User    *User
	Session *SessionRecord
}

// Lifecycle drives account creation, approval, refusal and login
type Lifecycle struct {
	repos        RepositoryManager
	stateMachine UserStateMachine
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	sessionTTL   time.Duration
	bcryptCost   int
}

// LifecycleOption customizes the lifecycle engine
type LifecycleOption func(*Lifecycle)

func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.activitySink = normalizeActivitySink(sink)
	}
}

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

func WithSessionTTL(ttl time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if ttl > 0 {
			l.sessionTTL = ttl
		}
	}
}

// WithBcryptCost overrides the password hashing cost, zero keeps the build default
func WithBcryptCost(cost int) LifecycleOption {
	return func(l *Lifecycle) {
		l.bcryptCost = cost
	}
}

// WithLifecycleStateMachine replaces the default user state machine
func WithLifecycleStateMachine(sm UserStateMachine) LifecycleOption {
	return func(l *Lifecycle) {
		if sm != nil {
			l.stateMachine = sm
		}
	}
}

func NewLifecycle(repos RepositoryManager, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		repos:        repos,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		sessionTTL:   defaultSessionTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.stateMachine == nil {
		l.stateMachine = NewUserStateMachine(repos.Users(),
			WithStateMachineActivitySink(l.activitySink),
			WithStateMachineLogger(l.logger),
			WithStateMachineClock(l.now),
		)
	}

	return l
}

// Signup creates an account. Admins are accepted on the spot, get their
// namespace and are logged in. Everybody else waits as pending with no session.
func (l *Lifecycle) Signup(ctx context.Context, reg Registration) (*User, *SessionRecord, error) {
	status := UserStatusPending
	if reg.Role == RoleAdmin {
		status = UserStatusAccepted
	}

	user, err := l.createUser(ctx, reg, status)
	if err != nil {
		return nil, nil, err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserSignup,
		Actor:     ActorRef{ID: user.Username, Type: "user"},
		UserID:    user.ID.String(),
		Username:  user.Username,
		ToStatus:  user.Status,
		Metadata:  map[string]any{"role": user.Role.String()},
	})

	if !user.IsAdmin() {
		return user, nil, nil
	}

	// the user row stays even if the namespace can not be created
	if err := l.ensureNamespace(ctx, ActorRef{ID: user.Username, Type: "user"}, user); err != nil {
		return nil, nil, err
	}

	session, err := l.repos.Sessions().Create(ctx, user, l.sessionTTL)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// Approve accepts a pending non admin user and creates its namespace.
// Approving an already accepted user retries the namespace creation.
func (l *Lifecycle) Approve(ctx context.Context, actor *Identity, username string) (*User, error) {
	target, actorRef, err := l.resolveTarget(ctx, actor, username)
	if err != nil {
		return nil, err
	}

	return l.stateMachine.Transition(ctx, actorRef, target, UserStatusAccepted,
		WithTransitionReason("approved by admin"),
		WithAfterTransitionHook(func(ctx context.Context, tc TransitionContext) error {
			return l.ensureNamespace(ctx, tc.Actor, tc.User)
		}),
	)
}

// Refuse moves a non admin user to refused and drops its live sessions.
// Namespaces are never touched.
func (l *Lifecycle) Refuse(ctx context.Context, actor *Identity, username string) (*User, error) {
	target, actorRef, err := l.resolveTarget(ctx, actor, username)
	if err != nil {
		return nil, err
	}

	return l.stateMachine.Transition(ctx, actorRef, target, UserStatusRefused,
		WithTransitionReason("refused by admin"),
		WithAfterTransitionHook(func(ctx context.Context, tc TransitionContext) error {
			return l.repos.Sessions().DeleteByUser(ctx, tc.User.ID)
		}),
	)
}

// Login checks the credentials and opens a session for accepted users
func (l *Lifecycle) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := l.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			l.recordLoginFailure(ctx, username, "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		l.recordLoginFailure(ctx, username, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.IsAccepted() {
		l.recordLoginFailure(ctx, username, "status "+string(user.Status))
		return nil, ErrAccountNotAccepted
	}

	session, err := l.repos.Sessions().Create(ctx, user, l.sessionTTL)
	if err != nil {
		return nil, err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.Username, Type: "user"},
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	return &LoginResult{User: user, Session: session}, nil
}

// AdminCreateUser creates an account on behalf of an admin. The account is
// always pending, even for the admin role: unlike Signup this path never
// auto accepts, and such an admin can not be approved later since
// approve only targets non admin users.
func (l *Lifecycle) AdminCreateUser(ctx context.Context, actor *Identity, reg Registration) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	user, err := l.createUser(ctx, reg, UserStatusPending)
	if err != nil {
		return nil, err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserCreated,
		Actor:     ActorRef{ID: actor.Username, Type: "admin"},
		UserID:    user.ID.String(),
		Username:  user.Username,
		ToStatus:  user.Status,
		Metadata:  map[string]any{"role": user.Role.String()},
	})

	return user, nil
}

// Logout drops the session, unknown tokens are ignored
func (l *Lifecycle) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := l.repos.Sessions().Get(ctx, token)
	if err == nil {
		l.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLogout,
			Actor:     ActorRef{ID: session.Username, Type: "user"},
			UserID:    session.UserID.String(),
			Username:  session.Username,
		})
	}

	return l.repos.Sessions().Delete(ctx, token)
}

// PublicDetails returns the user record for username, no session needed
func (l *Lifecycle) PublicDetails(ctx context.Context, username string) (*User, error) {
	return l.repos.Users().GetByUsername(ctx, username)
}

func (l *Lifecycle) createUser(ctx context.Context, reg Registration, status UserStatus) (*User, error) {
	if !ValidUsername(reg.Username) {
		return nil, ErrInvalidUsername(reg.Username)
	}

	role := reg.Role
	if role == "" {
		role = RoleStandard
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole(string(role))
	}

	constituency := strings.TrimSpace(reg.Constituency)
	if constituency == "" {
		return nil, ErrEmptyConstituency
	}

	hash, err := HashPasswordWithCost(reg.Password, l.bcryptCost)
	if err != nil {
		return nil, StoreError(err, "failed to hash password")
	}

	user := &User{
		Username:     reg.Username,
		PasswordHash: hash,
		Role:         role,
		Constituency: constituency,
		Status:       status,
	}

	var created *User
	err = l.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = l.repos.Users().RegisterTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (l *Lifecycle) resolveTarget(ctx context.Context, actor *Identity, username string) (*User, ActorRef, error) {
	if actor == nil {
		return nil, ActorRef{}, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, ActorRef{}, ErrUnauthorized
	}

	target, err := l.repos.Users().GetNonAdminByUsername(ctx, username)
	if err != nil {
		return nil, ActorRef{}, err
	}

	return target, ActorRef{ID: actor.Username, Type: "admin"}, nil
}

func (l *Lifecycle) ensureNamespace(ctx context.Context, actor ActorRef, user *User) error {
	ns, created, err := l.repos.Namespaces().Ensure(ctx, user.Username)
	if err != nil {
		l.logger.Error("namespace creation failed, user status kept",
			"username", user.Username,
			"status", string(user.Status),
			"error", err,
		)
		return err
	}

	if created {
		l.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventNamespaceCreated,
			Actor:     actor,
			UserID:    user.ID.String(),
			Username:  user.Username,
			Metadata:  map[string]any{"namespace": ns.Name},
		})
	}

	return nil
}

func (l *Lifecycle) recordLoginFailure(ctx context.Context, username, reason string) {
	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{ID: username, Type: "user"},
		Username:  username,
		Metadata:  map[string]any{"reason": reason},
	})
}

func (l *Lifecycle) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}
	if err := l.activitySink.Record(ctx, event); err != nil {
		l.logger.Warn("lifecycle activity sink error", "error", err)
	}
}
