package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/awsl-project/tower/internal/config"
	"github.com/awsl-project/tower/internal/core"
	"github.com/awsl-project/tower/internal/handler"
	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/awsl-project/tower/internal/version"
)

// serverHost 浏览器模式下的宿主：每个 WebSocket 连接都是一个窗口
type serverHost struct {
	hub  *handler.WebSocketHub
	quit chan struct{}
	once sync.Once
}

func (h *serverHost) Windows() []shutdown.Window {
	return h.hub.Windows()
}

func (h *serverHost) Quit() {
	h.once.Do(func() { close(h.quit) })
}

func main() {
	// Parse flags
	addr := flag.String("addr", "", "Server address (default: 127.0.0.1:3000, env TOWER_ADDR or PORT)")
	dataDir := flag.String("data", "", "Data directory for logs (default: ~/.config/tower)")
	publicDir := flag.String("public", "public", "Directory with the game assets")
	grace := flag.Duration("grace", 0, "Grace period before a stalled shutdown is forced (default: 3s)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tower", version.Full())
		os.Exit(0)
	}

	// CLI flag > env var > default
	cfg := config.Config{Addr: *addr, DataDir: *dataDir, GracePeriod: *grace}.Resolve()
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = config.DefaultServerGracePeriod
	}
	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", cfg.DataDir, err)
	}

	hub := handler.NewWebSocketHub()
	logWriter, err := handler.NewLogWriter(hub, os.Stdout, cfg.LogPath())
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	log.SetOutput(logWriter)

	handler.StaticDir = *publicDir

	host := &serverHost{hub: hub, quit: make(chan struct{})}
	coordinator := shutdown.NewCoordinator(host, shutdown.NewOSProcess(),
		shutdown.WithGracePeriod(cfg.GracePeriod))

	server := core.NewManagedServer(&core.ServerConfig{
		Addr:        cfg.Addr,
		Hub:         hub,
		Trigger:     coordinator,
		ServeStatic: true,
	})
	if err := server.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("Tower Defense server %s running on http://%s", version.Info(), server.Addr())
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("  Log file: %s", cfg.LogPath())
	log.Printf("Assets: %s", *publicDir)
	log.Printf("WebSocket: ws://%s/ws", server.Addr())

	// Wait for interrupt signal (SIGINT or SIGTERM) or a close request
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("Received %v, closing server...", sig)
		coordinator.Shutdown("signal:" + sig.String())
	case <-host.quit:
	}
	<-host.quit

	// 关闭流程已开始；此后任何阻塞都由 watchdog 兜底
	if err := server.Stop(context.Background()); err != nil {
		log.Printf("Server stop error: %v", err)
	}
	hub.Close()
	log.Printf("Server closed gracefully")
	logWriter.Close()

	coordinator.Exit()
}
