package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mabletask/tracker/models"
)

func newTestClient(endpoint string, attempts int) *Client {
	c := NewClient(Config{
		Endpoint:      endpoint,
		ProjectKey:    "pk_test_12345678",
		RetryAttempts: attempts,
	}.withDefaults())
	c.attempts = attempts
	// keep retry tests fast
	c.retryBase = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func TestClientInitSession(t *testing.T) {
	var gotKey string
	var gotBody models.InitSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/track/init", r.URL.Path)
		gotKey = r.Header.Get("X-Project-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"sessionId": "sess-123"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	id, err := c.InitSession(context.Background(), "user-42", models.SessionMetadata{URL: "https://docs.example.com/d/1"})

	require.NoError(t, err)
	assert.Equal(t, "sess-123", id)
	assert.Equal(t, "pk_test_12345678", gotKey)
	assert.Equal(t, "user-42", gotBody.ExternalUserID)
	assert.Equal(t, "https://docs.example.com/d/1", gotBody.Metadata.URL)
}

func TestClientSendEvents(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/track/events", r.URL.Path)
		gotSession = r.Header.Get("X-Session-Id")
		var batch models.EventBatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"eventsReceived": len(batch.Events)},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	n, err := c.SendEvents(context.Background(), "sess-123", []models.NormalizedEvent{
		{Kind: models.EventKeyDown, TargetID: "a"},
		{Kind: models.EventKeyUp, TargetID: "a"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "sess-123", gotSession)
}

func TestClientSendEventsEmptyBatchSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	n, err := c.SendEvents(context.Background(), "sess-123", nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, calls.Load())
}

func TestClientFinalizeSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/track/submit", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	require.NoError(t, c.FinalizeSession(context.Background(), "sess-123"))
}

func TestClientRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"sessionId": "sess-1"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	id, err := c.InitSession(context.Background(), "u", models.SessionMetadata{})

	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientSurfacesErrorAfterFinalAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.InitSession(context.Background(), "u", models.SessionMetadata{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientRejectsUnsuccessfulEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "quota exceeded",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	_, err := c.InitSession(context.Background(), "u", models.SessionMetadata{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFlattenEnvelopeMergesDataWithTopLevel(t *testing.T) {
	flat, err := flattenEnvelope([]byte(`{
		"success": true,
		"message": "ok",
		"data": {"sessionId": "s1", "eventsReceived": 4}
	}`))

	require.NoError(t, err)
	// callers see one merged object: envelope fields and data fields together
	assert.Equal(t, true, flat["success"])
	assert.Equal(t, "ok", flat["message"])
	assert.Equal(t, "s1", flat["sessionId"])
	assert.Equal(t, float64(4), flat["eventsReceived"])
	_, hasData := flat["data"]
	assert.False(t, hasData)
}

func TestFlattenEnvelopeWithoutData(t *testing.T) {
	flat, err := flattenEnvelope([]byte(`{"success": true}`))
	require.NoError(t, err)
	assert.Equal(t, true, flat["success"])
}

func TestFlattenEnvelopeRejectsGarbage(t *testing.T) {
	_, err := flattenEnvelope([]byte("not json"))
	require.Error(t, err)
}
