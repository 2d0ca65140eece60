package clob

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soleret/polyclob/errs"
)

var testSessionID = uuid.MustParse("7f3865f5-d1c4-4e07-a841-51b5e9ab0101")

// authenticateWithHeartbeat is the authenticate helper minus the call-count
// assertions, which would race against the background beat loop.
func authenticateWithHeartbeat(t *testing.T, v *venue, interval time.Duration) *AuthenticatedClient {
	t.Helper()
	mockAuthFlow(v)

	cfg := testSettings()
	cfg.Heartbeat.Interval = interval
	client, err := New(v.url(), cfg)
	require.NoError(t, err)

	ac, err := client.Auth(testSigner(t)).Authenticate(context.Background())
	require.NoError(t, err)
	return ac
}

func TestHeartbeat(t *testing.T) {
	v := newVenue(t)
	ac := authenticate(t, v)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, r *http.Request) {
		requireL2Headers(t, r)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"heartbeat_id":null}`, string(body))
		writeJSON(t, w, map[string]any{"heartbeat_id": testSessionID.String(), "error": nil})
	})

	resp, err := ac.Heartbeat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, testSessionID, resp.HeartbeatID)
}

func TestHeartbeatEchoesSessionID(t *testing.T) {
	v := newVenue(t)
	ac := authenticate(t, v)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HeartbeatID *uuid.UUID `json:"heartbeat_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.HeartbeatID)
		require.Equal(t, testSessionID, *req.HeartbeatID)
		writeJSON(t, w, map[string]any{"heartbeat_id": testSessionID.String(), "error": nil})
	})

	id := testSessionID
	_, err := ac.Heartbeat(context.Background(), &id)
	require.NoError(t, err)
}

func TestHeartbeatVenueError(t *testing.T) {
	v := newVenue(t)
	ac := authenticate(t, v)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"heartbeat_id": testSessionID.String(),
			"error":        "unknown heartbeat id",
		})
	})

	resp, err := ac.Heartbeat(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeHeartbeat))
	assert.ErrorContains(t, err, "unknown heartbeat id")
	// The acknowledged id still comes back alongside the rejection.
	assert.Equal(t, testSessionID, resp.HeartbeatID)
}

func TestHeartbeatDeliveryFailure(t *testing.T) {
	v := newVenue(t)
	ac := authenticate(t, v)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := ac.Heartbeat(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeHeartbeat))
	assert.ErrorContains(t, err, "heartbeat not delivered")
}

func TestHeartbeatLoop(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []*uuid.UUID
	)
	v := newVenue(t)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HeartbeatID *uuid.UUID `json:"heartbeat_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		ids = append(ids, req.HeartbeatID)
		mu.Unlock()
		writeJSON(t, w, map[string]any{"heartbeat_id": testSessionID.String(), "error": nil})
	})

	ac := authenticateWithHeartbeat(t, v, 20*time.Millisecond)
	errc := ac.HeartbeatErrs()
	require.NotNil(t, errc)

	require.Eventually(t, func() bool {
		return v.calls("POST /v1/heartbeats") >= 3
	}, 5*time.Second, 5*time.Millisecond)

	base := ac.Deauthenticate()
	require.NotNil(t, base)

	// Let a beat that was in flight at shutdown drain, then confirm the
	// loop is gone.
	time.Sleep(50 * time.Millisecond)
	n := v.calls("POST /v1/heartbeats")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, v.calls("POST /v1/heartbeats"))

	select {
	case err := <-errc:
		t.Fatalf("unexpected heartbeat failure: %v", err)
	default:
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ids)
	// The opening beat asks for a session; every later one echoes the
	// assigned id.
	assert.Nil(t, ids[0])
	for _, id := range ids[1:] {
		require.NotNil(t, id)
		assert.Equal(t, testSessionID, *id)
	}
}

func TestHeartbeatLoopSurfacesFailures(t *testing.T) {
	v := newVenue(t)
	v.handle("POST /v1/heartbeats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ac := authenticateWithHeartbeat(t, v, 20*time.Millisecond)

	select {
	case err := <-ac.HeartbeatErrs():
		require.Error(t, err)
		assert.True(t, errs.IsCode(err, errs.CodeHeartbeat))
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat failure surfaced")
	}
	ac.Deauthenticate()
}

func TestHeartbeatErrsNilWhenDisabled(t *testing.T) {
	v := newVenue(t)
	ac := authenticate(t, v)
	assert.Nil(t, ac.HeartbeatErrs())
}
