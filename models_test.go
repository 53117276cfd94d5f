package registry_test

import (
	"encoding/json"
	"testing"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoterFromPayload(t *testing.T) {
	v := registry.VoterFromPayload(map[string]any{
		"_id":          "client-id",
		"name":         "Ada",
		"constituency": "District1",
		"ward":         "7",
	})

	assert.Equal(t, "Ada", v.Name)
	assert.Equal(t, "District1", v.Constituency)
	assert.Equal(t, map[string]any{"ward": "7"}, v.Extra)
}

func TestVoterMarshalFlattensExtra(t *testing.T) {
	v := registry.VoterFromPayload(map[string]any{
		"name":         "Ada",
		"constituency": "District1",
		"tags":         []any{"a"},
	})

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, []any{"a"}, out["tags"])
	assert.NotContains(t, out, "Extra")
}

func TestUserStatusHelpers(t *testing.T) {
	u := &registry.User{}
	u.EnsureStatus()
	assert.True(t, u.IsPending())
	assert.False(t, u.IsAccepted())

	u.Status = registry.UserStatusRefused
	assert.True(t, u.IsRefused())

	var nilUser *registry.User
	assert.False(t, nilUser.IsAdmin())
	nilUser.EnsureStatus()
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	raw, err := json.Marshal(&registry.User{Username: "bob", PasswordHash: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}

func TestParseRole(t *testing.T) {
	role, ok := registry.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, registry.RoleAdmin, role)

	_, ok = registry.ParseRole("owner")
	assert.False(t, ok)

	assert.Len(t, registry.GetAllRoles(), 2)
}
