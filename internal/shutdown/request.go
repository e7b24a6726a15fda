package shutdown

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Request is a single invocation of the shutdown path. It is never
// persisted and never shared between invocations.
type Request struct {
	ID          string
	Reason      string
	IssuedAt    time.Time
	GracePeriod time.Duration

	windowsClosed atomic.Int64
}

func newRequest(reason string, grace time.Duration) *Request {
	return &Request{
		ID:          uuid.New().String(),
		Reason:      reason,
		IssuedAt:    time.Now(),
		GracePeriod: grace,
	}
}

// WindowsClosed 返回已成功关闭的窗口数量（仅用于观测）
func (r *Request) WindowsClosed() int {
	return int(r.windowsClosed.Load())
}

// Deadline 返回 watchdog 触发的时间点
func (r *Request) Deadline() time.Time {
	return r.IssuedAt.Add(r.GracePeriod)
}
