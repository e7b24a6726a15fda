package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrigger struct {
	reasons []string
}

func (s *stubTrigger) Shutdown(reason string) *shutdown.Request {
	s.reasons = append(s.reasons, reason)
	return &shutdown.Request{ID: "req-1", Reason: reason, GracePeriod: 150 * time.Millisecond}
}

func TestAPIHealth(t *testing.T) {
	h := NewAPIHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status string `json:"status"`
		Time   int64  `json:"time"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.InDelta(t, time.Now().UnixMilli(), body.Time, 5000)
}

func TestAPIClose(t *testing.T) {
	trigger := &stubTrigger{}
	h := NewAPIHandler(trigger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/app/close", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, trigger.reasons)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/app/close", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"http"}, trigger.reasons)
	assert.JSONEq(t, `{"id":"req-1","gracePeriod":150}`, rec.Body.String())
}

func TestAPICloseWithoutTrigger(t *testing.T) {
	h := NewAPIHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/app/close", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIUnknownEndpoint(t *testing.T) {
	h := NewAPIHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"API endpoint not found"}`, rec.Body.String())
}

func TestAPICloseOriginCheck(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantStatus int
	}{
		{"no origin", "", http.StatusAccepted},
		{"same origin", "http://example.com", http.StatusAccepted},
		{"same origin different case", "http://EXAMPLE.com", http.StatusAccepted},
		{"foreign origin", "https://evil.example", http.StatusForbidden},
		{"foreign port", "http://example.com:8080", http.StatusForbidden},
		{"opaque origin", "null", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &stubTrigger{}
			h := NewAPIHandler(trigger)

			req := httptest.NewRequest(http.MethodPost, "/api/app/close", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusAccepted {
				assert.Len(t, trigger.reasons, 1)
			} else {
				assert.Empty(t, trigger.reasons)
			}
		})
	}
}
