package registry

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserSignup        ActivityEventType = "user.signup"
	ActivityEventUserCreated       ActivityEventType = "user.created"
	ActivityEventUserStatusChanged ActivityEventType = "user.status.changed"
	ActivityEventNamespaceCreated  ActivityEventType = "namespace.created"
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLogout            ActivityEventType = "auth.logout"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Username   string
	FromStatus UserStatus
	ToStatus   UserStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best effort, errors are logged and never fail the operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink fans an event out to every sink, the first error is returned
// after all sinks ran.
func MultiActivitySink(sinks ...ActivitySink) ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// LoggerActivitySink writes every event to the logger at info level
func LoggerActivitySink(logger Logger) ActivitySink {
	logger = normalizeLogger(logger)
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		logger.Info("activity",
			"event", string(event.EventType),
			"actor", event.Actor.ID,
			"username", event.Username,
			"from", string(event.FromStatus),
			"to", string(event.ToStatus),
		)
		return nil
	})
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
