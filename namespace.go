package registry

import (
	"fmt"
	"regexp"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const (
	namespacePrefix = "user_"
	namespaceSuffix = "_collection"
)

// UsernamePattern restricts usernames to characters that are safe to embed
// in a namespace name
var UsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidUsername reports whether the username can be mapped to a namespace
func ValidUsername(username string) bool {
	return UsernamePattern.MatchString(username)
}

// NamespaceName returns the data namespace owned by username,
// e.g. bob -> user_bob_collection
func NamespaceName(username string) (string, error) {
	if !ValidUsername(username) {
		return "", ErrInvalidUsername(username)
	}
	return fmt.Sprintf("%s%s%s", namespacePrefix, username, namespaceSuffix), nil
}

// NamespaceID derives a stable id from the namespace name so that
// concurrent creations of the same namespace collide on the primary key
func NamespaceID(name string) (uuid.UUID, error) {
	return hashid.NewUUID(name)
}
