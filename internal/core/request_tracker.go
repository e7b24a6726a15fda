package core

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// RequestTracker tracks in-flight HTTP requests so Stop can drain them
type RequestTracker struct {
	mu          sync.Mutex
	activeCount atomic.Int64
	wg          sync.WaitGroup
	isShutdown  bool
}

// NewRequestTracker creates a new request tracker
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{}
}

// Add increments the active request count
// Returns false if shutdown is in progress (request should be rejected)
func (t *RequestTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isShutdown {
		return false
	}
	t.wg.Add(1)
	t.activeCount.Add(1)
	return true
}

// Done decrements the active request count
func (t *RequestTracker) Done() {
	remaining := t.activeCount.Add(-1)
	t.wg.Done()

	if t.IsShuttingDown() {
		log.Printf("[RequestTracker] Request completed, %d remaining", remaining)
	}
}

// ActiveCount returns the current number of active requests
func (t *RequestTracker) ActiveCount() int64 {
	return t.activeCount.Load()
}

// IsShuttingDown returns true if shutdown has been initiated
func (t *RequestTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isShutdown
}

// GracefulShutdown rejects new requests and waits up to maxWait for the
// active ones to complete. Returns true if all requests completed.
func (t *RequestTracker) GracefulShutdown(maxWait time.Duration) bool {
	t.mu.Lock()
	t.isShutdown = true
	t.mu.Unlock()

	activeCount := t.ActiveCount()
	if activeCount == 0 {
		log.Printf("[RequestTracker] No active requests, shutdown immediate")
		return true
	}

	log.Printf("[RequestTracker] Graceful shutdown initiated, waiting for %d active requests", activeCount)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case <-done:
		log.Printf("[RequestTracker] All requests completed, shutdown clean")
		return true
	case <-timer.C:
		log.Printf("[RequestTracker] Timeout reached, %d requests still active, forcing shutdown", t.ActiveCount())
		return false
	}
}

// Middleware tracks every request passing through next. Requests arriving
// after shutdown began are rejected with 503.
func (t *RequestTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer t.Done()
		next.ServeHTTP(w, r)
	})
}
