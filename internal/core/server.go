package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/awsl-project/tower/internal/handler"
	"golang.org/x/sync/errgroup"
)

// Graceful shutdown configuration
const (
	// RequestDrainTimeout is the maximum time to wait for in-flight requests
	RequestDrainTimeout = 1 * time.Second
	// HTTPShutdownTimeout is the timeout for HTTP server shutdown after requests complete
	HTTPShutdownTimeout = 1 * time.Second
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr        string
	Hub         *handler.WebSocketHub
	Trigger     handler.ShutdownTrigger
	ServeStatic bool

	// DrainTimeout 与 ShutdownTimeout 为零时使用 RequestDrainTimeout / HTTPShutdownTimeout
	DrainTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c *ServerConfig) drainTimeout() time.Duration {
	if c.DrainTimeout > 0 {
		return c.DrainTimeout
	}
	return RequestDrainTimeout
}

func (c *ServerConfig) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return HTTPShutdownTimeout
}

// ManagedServer 可管理的服务器（支持启动/停止/重启）
type ManagedServer struct {
	config     *ServerConfig
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	tracker    *RequestTracker
	isRunning  bool
}

// NewManagedServer 创建可管理的服务器
func NewManagedServer(config *ServerConfig) *ManagedServer {
	log.Printf("[Server] Creating managed server on %s", config.Addr)
	return &ManagedServer{config: config}
}

// setupRoutes 设置所有路由
func (s *ManagedServer) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/", handler.NewAPIHandler(s.config.Trigger))

	if s.config.Hub != nil {
		mux.HandleFunc("/ws", s.config.Hub.HandleWebSocket)
	}

	if s.config.ServeStatic {
		mux.Handle("/", handler.NewStaticHandler())
		log.Printf("[Server] Static file serving enabled")
	} else {
		mux.Handle("/", http.NotFoundHandler())
		log.Printf("[Server] Static file serving disabled (Wails mode)")
	}

	return handler.LoggingMiddleware(s.tracker.Middleware(mux))
}

// Start 启动服务器；监听失败时直接返回错误
func (s *ManagedServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		log.Printf("[Server] Server already running")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}

	s.tracker = NewRequestTracker()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	srv := s.httpServer
	go func() {
		log.Printf("[Server] Starting HTTP server on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] Server error: %v", err)
		}
	}()

	s.isRunning = true
	log.Printf("[Server] Server started successfully")
	return nil
}

// Stop 停止服务器：先等待进行中的请求，再关闭 HTTP 服务器和 WebSocket 连接
func (s *ManagedServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		log.Printf("[Server] Server already stopped")
		return nil
	}

	log.Printf("[Server] Stopping HTTP server on %s", s.listener.Addr())

	// Step 1: Wait for in-flight requests (rejects new ones)
	if !s.tracker.GracefulShutdown(s.config.drainTimeout()) {
		log.Printf("[Server] Drain timeout, some requests may be interrupted")
	}

	// Step 2: Shutdown HTTP server and hijacked websocket connections in parallel
	var g errgroup.Group
	g.Go(func() error {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout())
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] HTTP server graceful shutdown failed: %v, forcing close", err)
			if closeErr := s.httpServer.Close(); closeErr != nil {
				return fmt.Errorf("force close: %w", closeErr)
			}
		}
		return nil
	})
	if s.config.Hub != nil {
		g.Go(func() error {
			s.config.Hub.DisconnectAll()
			return nil
		})
	}
	err := g.Wait()

	s.isRunning = false
	if err != nil {
		return err
	}
	log.Printf("[Server] Server stopped successfully")
	return nil
}

// Restart 重启服务器
func (s *ManagedServer) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		log.Printf("[Server] Stop before restart failed: %v", err)
	}
	return s.Start(ctx)
}

// IsRunning 检查服务器是否在运行
func (s *ManagedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Addr 返回实际监听地址；未运行时返回配置的地址
func (s *ManagedServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning && s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}
