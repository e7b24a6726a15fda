package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/awsl-project/tower/internal/handler"
	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagedServerLifecycle(t *testing.T) {
	s := NewManagedServer(&ServerConfig{
		Addr: "127.0.0.1:0",
		Hub:  handler.NewWebSocketHub(),
	})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	// 重复启动无副作用
	require.NoError(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.Addr() + "/api/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, err = http.Get("http://" + s.Addr() + "/index.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	addr := s.Addr()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + addr + "/api/health")
	assert.Error(t, err)
}

func TestManagedServerRestart(t *testing.T) {
	s := NewManagedServer(&ServerConfig{Addr: "127.0.0.1:0"})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Restart(ctx))
	t.Cleanup(func() { s.Stop(ctx) })

	assert.True(t, s.IsRunning())
	resp, err := http.Get("http://" + s.Addr() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestManagedServerListenError(t *testing.T) {
	first := NewManagedServer(&ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { first.Stop(context.Background()) })

	second := NewManagedServer(&ServerConfig{Addr: first.Addr()})
	err := second.Start(context.Background())
	require.Error(t, err)
	assert.False(t, second.IsRunning())
}

type stuckTrigger struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stuckTrigger) Shutdown(reason string) *shutdown.Request {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return &shutdown.Request{ID: "stuck", Reason: reason}
}

func TestManagedServerStopHonorsConfiguredBudget(t *testing.T) {
	trigger := &stuckTrigger{entered: make(chan struct{}), release: make(chan struct{})}
	t.Cleanup(func() { close(trigger.release) })

	s := NewManagedServer(&ServerConfig{
		Addr:            "127.0.0.1:0",
		Trigger:         trigger,
		DrainTimeout:    30 * time.Millisecond,
		ShutdownTimeout: 30 * time.Millisecond,
	})
	require.NoError(t, s.Start(context.Background()))

	go func() {
		resp, err := http.Post("http://"+s.Addr()+"/api/app/close", "", nil)
		if err == nil {
			resp.Body.Close()
		}
	}()
	select {
	case <-trigger.entered:
	case <-time.After(time.Second):
		t.Fatal("request never reached the handler")
	}

	start := time.Now()
	require.NoError(t, s.Stop(context.Background()))
	// 默认预算是 RequestDrainTimeout + HTTPShutdownTimeout
	assert.Less(t, time.Since(start), RequestDrainTimeout)
	assert.False(t, s.IsRunning())
}

func TestRequestTracker(t *testing.T) {
	t.Run("no active requests", func(t *testing.T) {
		tr := NewRequestTracker()
		assert.True(t, tr.GracefulShutdown(time.Second))
		assert.True(t, tr.IsShuttingDown())
		assert.False(t, tr.Add())
		// 重复调用不能 panic
		assert.True(t, tr.GracefulShutdown(0))
	})

	t.Run("waits for completion", func(t *testing.T) {
		tr := NewRequestTracker()
		require.True(t, tr.Add())
		go func() {
			time.Sleep(20 * time.Millisecond)
			tr.Done()
		}()
		assert.True(t, tr.GracefulShutdown(time.Second))
		assert.Equal(t, int64(0), tr.ActiveCount())
	})

	t.Run("times out", func(t *testing.T) {
		tr := NewRequestTracker()
		require.True(t, tr.Add())
		t.Cleanup(tr.Done)

		start := time.Now()
		assert.False(t, tr.GracefulShutdown(30*time.Millisecond))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.False(t, tr.Add())
	})
}

func TestRequestTrackerMiddlewareRejectsDuringShutdown(t *testing.T) {
	tr := NewRequestTracker()
	h := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(0), tr.ActiveCount())

	tr.GracefulShutdown(0)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
