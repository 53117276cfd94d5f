package registry

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var identityCtxKey = &contextKey{"identity"}

// LocalsIdentityKey is the fiber locals key holding the caller *Identity
const LocalsIdentityKey = "identity"

type contextKey struct {
	name string
}

// WithContext sets the Identity in the given context
func WithContext(r context.Context, identity *Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// FromContext finds the identity from the context.
func FromContext(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok && raw != nil
}

// GetFiberIdentity extracts the Identity stored by the session middleware
func GetFiberIdentity(c *fiber.Ctx) (*Identity, bool) {
	raw := c.Locals(LocalsIdentityKey)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(*Identity)
	return identity, ok && identity != nil
}
