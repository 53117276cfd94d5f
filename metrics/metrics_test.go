package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/goliatone/go-voter-registry/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCountsEvents(t *testing.T) {
	ctx := context.Background()
	sink := metrics.NewSink()

	require.NoError(t, sink.Record(ctx, registry.ActivityEvent{
		EventType:  registry.ActivityEventUserStatusChanged,
		FromStatus: registry.UserStatusPending,
		ToStatus:   registry.UserStatusAccepted,
	}))
	require.NoError(t, sink.Record(ctx, registry.ActivityEvent{EventType: registry.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(ctx, registry.ActivityEvent{EventType: registry.ActivityEventLoginFailure}))
	require.NoError(t, sink.Record(ctx, registry.ActivityEvent{EventType: registry.ActivityEventLoginFailure}))

	expected := `
# HELP registry_logins_total Login attempts by result.
# TYPE registry_logins_total counter
registry_logins_total{result="failure"} 2
registry_logins_total{result="success"} 1
`
	err := testutil.GatherAndCompare(sink.Gatherer(), strings.NewReader(expected), "registry_logins_total")
	assert.NoError(t, err)

	expected = `
# HELP registry_user_status_transitions_total User status transitions by source and target status.
# TYPE registry_user_status_transitions_total counter
registry_user_status_transitions_total{from="pending",to="accepted"} 1
`
	err = testutil.GatherAndCompare(sink.Gatherer(), strings.NewReader(expected), "registry_user_status_transitions_total")
	assert.NoError(t, err)
}

func TestSinkHandler(t *testing.T) {
	sink := metrics.NewSink()
	require.NoError(t, sink.Record(context.Background(), registry.ActivityEvent{EventType: registry.ActivityEventUserSignup}))

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `registry_activity_events_total{event="user.signup"} 1`)
}
