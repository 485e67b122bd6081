package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/api"
	"github.com/phrazzld/sprout-api/internal/domain/recurrence"
	"github.com/phrazzld/sprout-api/internal/metrics"
	"github.com/phrazzld/sprout-api/internal/mocks"
	"github.com/phrazzld/sprout-api/internal/service/auth"
	"github.com/phrazzld/sprout-api/internal/service/devices"
	"github.com/phrazzld/sprout-api/internal/service/preferences"
	"github.com/phrazzld/sprout-api/internal/service/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = civil.Date{Year: 2025, Month: time.March, Day: 1}

type testServer struct {
	handler http.Handler
	owners  map[string]uuid.UUID
	health  error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{owners: map[string]uuid.UUID{"alice": uuid.New(), "bob": uuid.New()}}

	jwt := &mocks.MockJWTService{
		ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
			id, ok := ts.owners[token]
			if !ok {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id, TokenType: "access"}, nil
		},
	}

	st := mocks.NewMockScheduleStore()
	rec := recurrence.NewServiceWithClock(time.UTC, func() time.Time {
		return time.Date(today.Year, today.Month, today.Day, 9, 0, 0, 0, time.UTC)
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Send("email", "due_today", metrics.OutcomeSent)

	ts.handler = api.NewRouter(api.RouterDeps{
		JWT:         jwt,
		Schedules:   schedule.NewService(st, st.Occurrences(), rec, nil),
		Devices:     devices.NewRegistry(mocks.NewMockDeviceStore(), nil),
		Preferences: preferences.NewService(mocks.NewMockPreferenceStore(), "Europe/Warsaw", nil),
		Gatherer:    reg,
		Health:      func(context.Context) error { return ts.health },
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, owner string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+owner)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func weekly() map[string]interface{} {
	return map[string]interface{}{"anchor_date": today.String(), "interval_value": 7, "interval_unit": "days"}
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/devices"},
		{http.MethodPut, "/api/plants/" + uuid.NewString() + "/schedules/water"},
		{http.MethodPost, "/api/schedules/" + uuid.NewString() + "/deactivate"},
		{http.MethodPost, "/api/occurrences/" + uuid.NewString() + "/complete"},
		{http.MethodGet, "/api/notifications/preferences"},
		{http.MethodPatch, "/api/notifications/preferences"},
	} {
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, tc.method, tc.path, "", nil).Code, tc.path)
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, tc.method, tc.path, "mallory", nil).Code, tc.path)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	ts := newTestServer(t)
	plant := uuid.NewString()

	rr := ts.do(t, http.MethodPut, "/api/plants/"+plant+"/schedules/water", "alice", weekly())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rule := decode[api.ScheduleResponse](t, rr)
	assert.Equal(t, plant, rule.PlantID.String())
	assert.True(t, rule.Active)
	require.NotNil(t, rule.Pending)
	assert.Equal(t, today.AddDays(7), rule.Pending.DueDate)
	assert.Equal(t, "pending", rule.Pending.Status)

	// Another owner cannot complete it.
	completePath := "/api/occurrences/" + rule.Pending.ID.String() + "/complete"
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, completePath, "bob", nil).Code)

	rr = ts.do(t, http.MethodPost, completePath, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decode[api.CompletionResponse](t, rr)
	assert.Equal(t, "completed", done.Completed.Status)
	assert.Equal(t, "user", done.Completed.Source)
	require.NotNil(t, done.Next)
	assert.Equal(t, today.AddDays(14), done.Next.DueDate)

	// Completing again is idempotent.
	rr = ts.do(t, http.MethodPost, completePath, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	again := decode[api.CompletionResponse](t, rr)
	assert.Nil(t, again.Next)
	assert.Contains(t, rr.Body.String(), `"next":null`)

	deactivatePath := "/api/schedules/" + rule.ID.String() + "/deactivate"
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, deactivatePath, "bob", nil).Code)

	rr = ts.do(t, http.MethodPost, deactivatePath, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	off := decode[api.ScheduleResponse](t, rr)
	assert.False(t, off.Active)
	require.NotNil(t, off.Pending, "pending task stays completable")
	assert.Equal(t, done.Next.ID, off.Pending.ID)
}

func TestPutSchedule_Validation(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/plants/" + uuid.NewString() + "/schedules/"

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"unknown kind", base + "prune", weekly()},
		{"bad plant id", "/api/plants/not-a-uuid/schedules/water", weekly()},
		{"missing body", base + "water", nil},
		{"malformed json", base + "water", `{"anchor_date":`},
		{"bad date", base + "water", map[string]interface{}{"anchor_date": "2025-02-30", "interval_value": 1, "interval_unit": "days"}},
		{"zero interval", base + "water", map[string]interface{}{"anchor_date": "2025-03-01", "interval_value": 0, "interval_unit": "days"}},
		{"unknown unit", base + "water", map[string]interface{}{"anchor_date": "2025-03-01", "interval_value": 2, "interval_unit": "weeks"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPut, tc.path, "alice", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}
}

func TestCompleteOccurrence_Errors(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound,
		ts.do(t, http.MethodPost, "/api/occurrences/"+uuid.NewString()+"/complete", "alice", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, http.MethodPost, "/api/occurrences/123/complete", "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		ts.do(t, http.MethodPost, "/api/schedules/"+uuid.NewString()+"/deactivate", "alice", nil).Code)
}

func TestRegisterDevice(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"token": "fcm-token-1", "platform": "android"}

	rr := ts.do(t, http.MethodPost, "/api/devices", "alice", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[api.DeviceResponse](t, rr)
	assert.True(t, first.Created)
	assert.True(t, first.Active)

	rr = ts.do(t, http.MethodPost, "/api/devices", "bob", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[api.DeviceResponse](t, rr).Created)

	rr = ts.do(t, http.MethodPost, "/api/devices", "alice", map[string]string{"token": "x", "platform": "web"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "platform")
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/notifications/preferences"

	rr := ts.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	defaults := decode[api.PreferenceResponse](t, rr)
	assert.Equal(t, "Europe/Warsaw", defaults.Timezone)
	assert.True(t, defaults.EmailDueToday)
	assert.Equal(t, 12, defaults.PushHour)

	rr = ts.do(t, http.MethodPatch, path, "alice", map[string]interface{}{
		"language": " PL ", "push_overdue_1d": true, "push_hour": 20, "push_minute": 15,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[api.PreferenceResponse](t, rr)
	assert.Equal(t, "pl", updated.Language)
	assert.True(t, updated.PushOverdue)
	assert.Equal(t, 20, updated.PushHour)
	assert.Equal(t, 15, updated.PushMinute)
	assert.True(t, updated.EmailDueToday, "omitted fields are unchanged")

	for _, bad := range []map[string]interface{}{
		{"email_hour": 24},
		{"push_minute": -1},
		{"timezone": "Mars/Base"},
		{"language": "xx"},
	} {
		rr = ts.do(t, http.MethodPatch, path, "alice", bad)
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}

	rr = ts.do(t, http.MethodGet, path, "alice", nil)
	assert.Equal(t, updated, decode[api.PreferenceResponse](t, rr), "rejected patches change nothing")
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"))

	ts.health = errors.New("db: connection refused")
	rr = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")

	rr = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "sprout_notifications_total"))
}
