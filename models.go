package registry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the account lifecycle state
type UserStatus string

const (
	// UserStatusPending is the initial state of a signup waiting for an admin
	UserStatusPending UserStatus = "pending"
	// UserStatusAccepted users can log in and own a data namespace
	UserStatusAccepted UserStatus = "accepted"
	// UserStatusRefused is terminal
	UserStatusRefused UserStatus = "refused"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"role"`
	Constituency  string     `bun:"constituency,notnull" json:"constituency"`
	Status        UserStatus `bun:"status,notnull" json:"status"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults an empty status to pending
func (u *User) EnsureStatus() {
	if u == nil {
		return
	}
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

func (u *User) IsPending() bool {
	return u != nil && u.Status == UserStatusPending
}

func (u *User) IsAccepted() bool {
	return u != nil && u.Status == UserStatusAccepted
}

func (u *User) IsRefused() bool {
	return u != nil && u.Status == UserStatusRefused
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Voter is a plain CRUD record, it is not tied to users or sessions.
// Fields other than name and constituency supplied on creation are kept
// in Extra and flattened back when the voter is serialized.
type Voter struct {
	bun.BaseModel `bun:"table:voters,alias:vtr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	Name          string         `bun:"name"`
	Constituency  string         `bun:"constituency"`
	Extra         map[string]any `bun:"extra"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp"`
}

var voterReservedKeys = map[string]struct{}{
	"id":           {},
	"_id":          {},
	"name":         {},
	"constituency": {},
	"created_at":   {},
	"updated_at":   {},
}

// MarshalJSON flattens Extra into the top level object
func (v Voter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Extra)+5)
	for k, val := range v.Extra {
		out[k] = val
	}
	out["id"] = v.ID
	out["name"] = v.Name
	out["constituency"] = v.Constituency
	if v.CreatedAt != nil {
		out["created_at"] = v.CreatedAt
	}
	if v.UpdatedAt != nil {
		out["updated_at"] = v.UpdatedAt
	}
	return json.Marshal(out)
}

// VoterFromPayload builds a voter from an arbitrary client object
func VoterFromPayload(payload map[string]any) *Voter {
	v := &Voter{}
	if name, ok := payload["name"].(string); ok {
		v.Name = name
	}
	if c, ok := payload["constituency"].(string); ok {
		v.Constituency = c
	}
	for k, val := range payload {
		if _, reserved := voterReservedKeys[k]; reserved {
			continue
		}
		if v.Extra == nil {
			v.Extra = make(map[string]any)
		}
		v.Extra[k] = val
	}
	return v
}

// Namespace is a per user data partition
type Namespace struct {
	bun.BaseModel `bun:"table:namespaces,alias:ns"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull,unique" json:"name"`
	Owner         string     `bun:"owner,notnull" json:"owner"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Document is an arbitrary JSON object stored inside a namespace
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	Namespace     string         `bun:"namespace,notnull" json:"namespace"`
	Data          map[string]any `bun:"data" json:"data"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SessionRecord is the server side session snapshot
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	Token         string    `bun:"token,pk" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Username      string    `bun:"username,notnull" json:"username"`
	Role          UserRole  `bun:"user_role,notnull" json:"role"`
	Constituency  string    `bun:"constituency,notnull" json:"constituency"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// Expired reports whether the session is past its expiration
func (s *SessionRecord) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.After(now)
}

// Identity returns the caller identity stored in the snapshot
func (s *SessionRecord) Identity() *Identity {
	if s == nil {
		return nil
	}
	return &Identity{
		UserID:       s.UserID.String(),
		Username:     s.Username,
		Role:         s.Role,
		Constituency: s.Constituency,
	}
}
