package activitymap

import (
	"context"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/uptrace/bun"
)

// Sink persists every activity event to the activity_log table
type Sink struct {
	db   bun.IDB
	opts []Option
}

var _ registry.ActivitySink = (*Sink)(nil)

func NewSink(db bun.IDB, opts ...Option) *Sink {
	return &Sink{db: db, opts: opts}
}

func (s *Sink) Record(ctx context.Context, event registry.ActivityEvent) error {
	record := Normalize(event, s.opts...)
	if _, err := s.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return registry.StoreError(err, "failed to store activity")
	}
	return nil
}

// ListByObject returns the trail of objectID, oldest first
func (s *Sink) ListByObject(ctx context.Context, objectID string) ([]Record, error) {
	records := []Record{}
	if err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.object_id = ?", objectID).
		OrderExpr("?TableAlias.occurred_at ASC").
		Scan(ctx); err != nil {
		return nil, registry.StoreError(err, "failed to list activity")
	}
	return records, nil
}
