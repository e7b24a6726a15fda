package shutdown

import (
	"log"
	"sync/atomic"
	"time"
)

// DefaultGracePeriod 协作退出的等待时间，超时后强制终止进程
const DefaultGracePeriod = 150 * time.Millisecond

// Window 可关闭的窗口（webview 主窗口、托盘、浏览器标签页等）
type Window interface {
	Label() string
	Close() error
}

// AppContext 宿主应用提供的能力：枚举窗口、请求协作退出
type AppContext interface {
	Windows() []Window
	Quit()
}

// Process 操作系统级别的进程控制
type Process interface {
	// Exit 以给定状态码正常退出
	Exit(code int)
	// Abort 立即终止进程，不执行任何清理
	Abort()
}

// Observer 接收关闭流程中的事件。EventExited 与 EventAborted 在终止进程的同时异步发出，
// 可能来不及送达；EventExited 的 req 可能为 nil（未经 Shutdown 的正常退出）
type Observer interface {
	OnShutdownEvent(req *Request, event Event, detail string)
}

// Event 关闭流程事件类型
type Event string

const (
	EventStarted       Event = "started"
	EventWindowClosed  Event = "window_closed"
	EventWindowFailed  Event = "window_failed"
	EventQuitRequested Event = "quit_requested"
	EventExited        Event = "exited"
	EventAborted       Event = "aborted"
)

// Coordinator guarantees process termination within a bounded time after a
// shutdown is requested. Every request closes the windows it can, asks the
// host to quit, and arms a watchdog that aborts the process once the grace
// period has elapsed.
type Coordinator struct {
	app         AppContext
	proc        Process
	gracePeriod time.Duration
	observer    Observer

	terminated atomic.Bool
	requests   atomic.Int64
	latest     atomic.Pointer[Request]
}

// Option 配置 Coordinator
type Option func(*Coordinator)

// WithGracePeriod 设置协作退出的等待时间
func WithGracePeriod(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.gracePeriod = d
		}
	}
}

// WithObserver 设置事件观察者
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// NewCoordinator 创建关闭协调器
func NewCoordinator(app AppContext, proc Process, opts ...Option) *Coordinator {
	c := &Coordinator{
		app:         app,
		proc:        proc,
		gracePeriod: DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GracePeriod returns the configured grace period.
func (c *Coordinator) GracePeriod() time.Duration {
	return c.gracePeriod
}

// Shutdown starts an irrevocable shutdown and returns immediately.
// The returned request is observational only.
func (c *Coordinator) Shutdown(reason string) *Request {
	req := newRequest(reason, c.gracePeriod)
	c.latest.Store(req)

	// watchdog 必须与协作关闭路径运行在不同的 goroutine 上
	go c.watchdog(req)
	go c.graceful(req)

	n := c.requests.Add(1)
	log.Printf("[Shutdown] Request %s (%s) received, grace period %v", req.ID, reason, c.gracePeriod)
	if n > 1 {
		log.Printf("[Shutdown] %d shutdown requests issued, converging on one termination", n)
	}

	return req
}

// Exit terminates the process with status 0. The host calls it once its
// event loop has returned, whether or not a request was issued.
//
// The EventExited notification is best-effort: it is dispatched on its own
// goroutine right before the process exits, so with the OS process it is
// usually lost. It is reliably observable only with a Process that returns.
func (c *Coordinator) Exit() {
	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[Shutdown] Host event loop stopped, exiting")
	// 观察者不能阻塞退出
	go c.notify(c.latest.Load(), EventExited, "")
	c.proc.Exit(0)
}

// Terminated reports whether a termination outcome has been delivered.
func (c *Coordinator) Terminated() bool {
	return c.terminated.Load()
}

func (c *Coordinator) graceful(req *Request) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Shutdown] Request %s: graceful path panicked: %v", req.ID, r)
		}
	}()

	c.notify(req, EventStarted, req.Reason)

	windows := c.snapshot(req)
	for _, w := range windows {
		c.closeWindow(req, w)
	}

	log.Printf("[Shutdown] Request %s: %d/%d windows closed, requesting quit", req.ID, req.WindowsClosed(), len(windows))
	c.notify(req, EventQuitRequested, "")
	c.quit(req)
}

func (c *Coordinator) snapshot(req *Request) (windows []Window) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Shutdown] Request %s: enumerating windows panicked: %v", req.ID, r)
			windows = nil
		}
	}()
	return c.app.Windows()
}

func (c *Coordinator) closeWindow(req *Request, w Window) {
	label := "<unknown>"
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Shutdown] Request %s: closing window %s panicked: %v", req.ID, label, r)
			c.notify(req, EventWindowFailed, label)
		}
	}()

	label = w.Label()
	if err := w.Close(); err != nil {
		log.Printf("[Shutdown] Request %s: failed to close window %s: %v", req.ID, label, err)
		c.notify(req, EventWindowFailed, label)
		return
	}
	req.windowsClosed.Add(1)
	c.notify(req, EventWindowClosed, label)
}

func (c *Coordinator) quit(req *Request) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Shutdown] Request %s: quit panicked: %v", req.ID, r)
		}
	}()
	c.app.Quit()
}

func (c *Coordinator) watchdog(req *Request) {
	timer := time.NewTimer(req.GracePeriod)
	defer timer.Stop()
	<-timer.C

	if !c.terminated.CompareAndSwap(false, true) {
		return
	}
	// 日志输出本身也可能阻塞，不能挡在 Abort 前面
	go log.Printf("[Shutdown] Request %s: process still alive after %v, aborting", req.ID, time.Since(req.IssuedAt))
	go c.notify(req, EventAborted, "")
	c.proc.Abort()
}

func (c *Coordinator) notify(req *Request, event Event, detail string) {
	if c.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Shutdown] Observer panicked on %s: %v", event, r)
		}
	}()
	c.observer.OnShutdownEvent(req, event, detail)
}
