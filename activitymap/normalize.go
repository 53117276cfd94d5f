package activitymap

import (
	"strings"
	"time"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// MetadataKeyActorType stores the actor type of the event, admin or user
	MetadataKeyActorType = "actor_type"
	// MetadataKeyUsername stores the username the event is about
	MetadataKeyUsername = "username"
	// MetadataKeyFromStatus stores the source status of a transition
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the target status of a transition
	MetadataKeyToStatus = "to_status"
)

const (
	defaultChannel    = "registry"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Record is the persisted, transport agnostic shape of an activity event
type Record struct {
	bun.BaseModel `bun:"table:activity_log,alias:act"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	ActorID       string         `bun:"actor_id,notnull" json:"actor_id"`
	Verb          string         `bun:"verb,notnull" json:"verb"`
	ObjectType    string         `bun:"object_type" json:"object_type,omitempty"`
	ObjectID      string         `bun:"object_id" json:"object_id,omitempty"`
	Channel       string         `bun:"channel" json:"channel,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt    time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if channel = strings.TrimSpace(channel); channel != "" {
			opts.channel = channel
		}
	}
}

// WithActorFallback sets the actor id used when the event names none
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithClock is used for events without a timestamp
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

// Normalize converts a registry activity event into a Record. Namespace
// events are filed under the namespace object type.
func Normalize(event registry.ActivityEvent, opts ...Option) Record {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	objectType := defaultObjectType
	objectID := strings.TrimSpace(event.UserID)
	if event.EventType == registry.ActivityEventNamespaceCreated {
		objectType = "namespace"
		if name, ok := event.Metadata["namespace"].(string); ok {
			objectID = name
		}
	}
	if objectID == "" {
		objectID = strings.TrimSpace(event.Username)
	}

	return Record{
		ID: uuid.New(),
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.Username),
			options.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

func normalizeMetadata(event registry.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+4)
	for k, v := range event.Metadata {
		metadata[k] = v
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}
	if event.Username != "" {
		metadata[MetadataKeyUsername] = event.Username
	}
	if event.FromStatus != "" {
		metadata[MetadataKeyFromStatus] = string(event.FromStatus)
	}
	if event.ToStatus != "" {
		metadata[MetadataKeyToStatus] = string(event.ToStatus)
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
