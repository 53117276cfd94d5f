package registry_test

import (
	"context"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/stretchr/testify/mock"
)

// MockUsers implements registry.StatusUpdater
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) UpdateStatus(ctx context.Context, user *registry.User, status registry.UserStatus) (*registry.User, error) {
	args := m.Called(ctx, user.ID, status)
	if u := args.Get(0); u != nil {
		return u.(*registry.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type capturingSink struct {
	events []registry.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt registry.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []registry.ActivityEventType {
	out := make([]registry.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}
