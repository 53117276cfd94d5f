package registry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "registry_session"

type apiClient struct {
	t   *testing.T
	srv *registry.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	srv, err := registry.NewServer(newTestConfig(), newTestDB(t))
	require.NoError(t, err)
	return &apiClient{t: t, srv: srv}
}

type apiResponse struct {
	status int
	token  string
	body   map[string]any
	raw    []byte
}

func (a *apiClient) do(method, path, token string, payload any) apiResponse {
	a.t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}

	resp, err := a.srv.App.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode}
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			out.token = c.Value
		}
	}

	out.raw, err = io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(out.raw) > 0 && out.raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(out.raw, &out.body))
	}
	return out
}

func signupBody(username, role, constituency string) map[string]any {
	return map[string]any{
		"username":     username,
		"password":     "pw-" + username,
		"role":         role,
		"constituency": constituency,
	}
}

func loginBody(username string) map[string]any {
	return map[string]any{"username": username, "password": "pw-" + username}
}

func TestSignupApproveLoginFlow(t *testing.T) {
	api := newAPI(t)

	res := api.do(http.MethodPost, "/api/signup", "", signupBody("bob", "standard", "District1"))
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Empty(t, res.token)
	assert.Equal(t, "Signup request submitted. Awaiting admin approval.", res.body["message"])
	user := res.body["user"].(map[string]any)
	assert.Equal(t, "pending", user["status"])
	assert.NotContains(t, string(res.raw), "password")

	res = api.do(http.MethodPost, "/api/login", "", loginBody("bob"))
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, registry.TextCodeAccountNotAccepted, res.body["text_code"])

	res = api.do(http.MethodPost, "/api/signup", "", signupBody("root", "admin", "District1"))
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Equal(t, "Admin signup and login successful", res.body["message"])
	rootToken := res.token
	require.NotEmpty(t, rootToken)

	res = api.do(http.MethodGet, "/api/admin/dashboard", rootToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	pending := res.body["pendingUsers"].([]any)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].(map[string]any)["username"])

	res = api.do(http.MethodPost, "/api/admin/accept", rootToken, map[string]any{"username": "bob"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "accepted", res.body["user"].(map[string]any)["status"])

	ok, err := api.srv.Repos.Namespaces().Exists(context.Background(), "user_bob_collection")
	require.NoError(t, err)
	assert.True(t, ok)

	res = api.do(http.MethodPost, "/api/login", "", loginBody("bob"))
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	bobToken := res.token
	require.NotEmpty(t, bobToken)

	res = api.do(http.MethodGet, "/api/user", bobToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "bob", res.body["user"].(map[string]any)["username"])

	res = api.do(http.MethodGet, "/api/user/data", bobToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Empty(t, res.body["userData"])

	res = api.do(http.MethodPost, "/api/user/data", bobToken, map[string]any{"note": "hello"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))

	res = api.do(http.MethodGet, "/api/user/data", bobToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["userData"], 1)

	res = api.do(http.MethodGet, "/api/admin/dashboard", bobToken, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = api.do(http.MethodPost, "/api/logout", bobToken, nil)
	require.Equal(t, http.StatusOK, res.status)

	res = api.do(http.MethodGet, "/api/user", bobToken, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestSignupErrors(t *testing.T) {
	api := newAPI(t)

	res := api.do(http.MethodPost, "/api/signup", "", signupBody("bob", "standard", "District1"))
	require.Equal(t, http.StatusCreated, res.status)

	res = api.do(http.MethodPost, "/api/signup", "", signupBody("bob", "standard", "District1"))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, registry.TextCodeUsernameTaken, res.body["text_code"])

	res = api.do(http.MethodPost, "/api/signup", "", signupBody("bad name", "standard", "District1"))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, registry.TextCodeInvalidPayload, res.body["text_code"])
	assert.NotEmpty(t, res.body["validation_errors"])

	res = api.do(http.MethodPost, "/api/signup", "", signupBody("eve", "superuser", "District1"))
	assert.Equal(t, http.StatusBadRequest, res.status)

	for _, role := range []string{"admin", "standard"} {
		res = api.do(http.MethodPost, "/api/signup", "", signupBody("blank-"+role, role, "   "))
		assert.Equal(t, http.StatusBadRequest, res.status, role)
		assert.Equal(t, registry.TextCodeInvalidPayload, res.body["text_code"], role)
		assert.Empty(t, res.token, role)
	}

	res = api.do(http.MethodPost, "/api/signup", "", signupBody("dan", "standard", "  District1  "))
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Equal(t, "District1", res.body["user"].(map[string]any)["constituency"])

	res = api.do(http.MethodPost, "/api/login", "", map[string]any{"username": "bob", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, registry.TextCodeInvalidCreds, res.body["text_code"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{"/api/user", "/api/user/data", "/api/admin/dashboard", "/api/admin/collections"} {
		res := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.status, path)
		assert.Equal(t, "authentication", res.body["error"], path)
	}

	res := api.do(http.MethodPost, "/api/admin/accept", "", map[string]any{"username": "bob"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestAdminRoutes(t *testing.T) {
	api := newAPI(t)

	res := api.do(http.MethodPost, "/api/signup", "", signupBody("root", "admin", "District1"))
	require.Equal(t, http.StatusCreated, res.status)
	rootToken := res.token

	res = api.do(http.MethodPost, "/api/admin/users", rootToken, signupBody("carol", "standard", "District1"))
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Equal(t, "pending", res.body["user"].(map[string]any)["status"])

	res = api.do(http.MethodPost, "/api/admin/refuse", rootToken, map[string]any{"username": "carol"})
	require.Equal(t, http.StatusOK, res.status)

	res = api.do(http.MethodPost, "/api/admin/accept", rootToken, map[string]any{"username": "carol"})
	assert.Equal(t, http.StatusConflict, res.status)

	res = api.do(http.MethodPost, "/api/admin/accept", rootToken, map[string]any{"username": "root"})
	assert.Equal(t, http.StatusNotFound, res.status)

	res = api.do(http.MethodPost, "/api/admin/accept", rootToken, map[string]any{"username": "ghost"})
	assert.Equal(t, http.StatusNotFound, res.status)

	res = api.do(http.MethodGet, "/api/admin/collections", rootToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["collections"], 3)

	res = api.do(http.MethodGet, "/api/admin/collections/users", rootToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["documents"], 2)
	assert.NotContains(t, string(res.raw), "password")

	res = api.do(http.MethodGet, "/api/admin/collections/nope", rootToken, nil)
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, registry.TextCodeStoreError, res.body["text_code"])
}

func TestUserDetails(t *testing.T) {
	api := newAPI(t)

	res := api.do(http.MethodPost, "/api/signup", "", signupBody("bob", "standard", "District1"))
	require.Equal(t, http.StatusCreated, res.status)

	res = api.do(http.MethodGet, "/api/user/details/bob", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "District1", res.body["user"].(map[string]any)["constituency"])
	assert.NotContains(t, string(res.raw), "password")

	res = api.do(http.MethodGet, "/api/user/details/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestVoterRoutes(t *testing.T) {
	api := newAPI(t)

	res := api.do(http.MethodPost, "/api/voters", "", map[string]any{
		"name":         "Ada",
		"constituency": "District1",
		"ward":         "7",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	voter := res.body["voter"].(map[string]any)
	id := voter["id"].(string)
	assert.Equal(t, "7", voter["ward"])

	res = api.do(http.MethodGet, "/api/voters/"+id, "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Ada", res.body["name"])

	res = api.do(http.MethodPut, "/api/voters/"+id, "", map[string]any{"name": "Ada L.", "constituency": "District2"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "District2", res.body["voter"].(map[string]any)["constituency"])

	res = api.do(http.MethodGet, "/api/voters", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(res.raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ada L.", list[0]["name"])

	res = api.do(http.MethodGet, "/api/voters/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = api.do(http.MethodPut, "/api/voters/"+id, "", map[string]any{"name": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	voter = res.body["voter"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", voter["name"])
	assert.Equal(t, "District2", voter["constituency"])
	assert.Equal(t, "7", voter["ward"])

	res = api.do(http.MethodPut, "/api/voters/"+uuid.NewString(), "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	res := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "OK", string(res.raw))
}
