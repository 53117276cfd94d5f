package registry

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_USER_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from refused.
var ErrTerminalState = goerrors.New("user state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor  ActorRef
	User   *User
	From   UserStatus
	To     UserStatus
	Reason string
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// StatusUpdater persists a status change. The update is unconditional on the
// current stored status: concurrent writers race and the last one wins.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, user *User, status UserStatus) (*User, error)
}

// UserStateMachine defines lifecycle operations for users.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	CanTransition(from, to UserStatus) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
// A failing after hook does not undo the persisted status.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewUserStateMachine returns the default implementation backed by the provided store.
func NewUserStateMachine(users StatusUpdater, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users: users,
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusPending: {
				UserStatusAccepted: {},
				UserStatusRefused:  {},
			},
			UserStatusAccepted: {
				UserStatusRefused: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users        StatusUpdater
	transitions  map[UserStatus]map[UserStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	reason      string
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}

	if target == "" {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	user.EnsureStatus()
	from := user.Status

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	tc := TransitionContext{
		Actor:  actor,
		User:   user,
		From:   from,
		To:     target,
		Reason: options.reason,
	}

	if from == target {
		// nothing to persist, after hooks still run so side effects
		// like namespace creation stay idempotent
		if err := sm.runHooks(ctx, options.afterHooks, tc); err != nil {
			return user, err
		}
		return user, nil
	}

	if from == UserStatusRefused {
		return nil, ErrTerminalState
	}

	if !sm.CanTransition(from, target) {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if err := sm.runHooks(ctx, options.beforeHooks, tc); err != nil {
		return nil, err
	}

	updated, err := sm.users.UpdateStatus(ctx, user, target)
	if err != nil {
		return nil, err
	}

	if updated != nil {
		*user = *updated
	}
	user.Status = target

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		Actor:      actor,
		UserID:     user.ID.String(),
		Username:   user.Username,
		FromStatus: from,
		ToStatus:   target,
		Metadata:   transitionMetadata(options.reason),
	})

	if err := sm.runHooks(ctx, options.afterHooks, tc); err != nil {
		return user, err
	}

	return user, nil
}

func (sm *userStateMachine) CanTransition(from, to UserStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *userStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, tc TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

func (sm *userStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}

func transitionMetadata(reason string) map[string]any {
	if reason == "" {
		return nil
	}
	return map[string]any{"reason": reason}
}
