package desktop

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/awsl-project/tower/internal/config"
	"github.com/awsl-project/tower/internal/core"
	"github.com/awsl-project/tower/internal/domain"
	"github.com/awsl-project/tower/internal/handler"
	"github.com/awsl-project/tower/internal/repository"
	"github.com/awsl-project/tower/internal/repository/gormdb"
	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/awsl-project/tower/internal/version"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Options 创建 LauncherApp 的依赖
type Options struct {
	Config config.Config
	Hub    *handler.WebSocketHub
	// Process 默认为当前操作系统进程
	Process shutdown.Process
}

// ServerStatus 服务器状态
type ServerStatus struct {
	Ready bool   `json:"ready"`
	Addr  string `json:"addr"`
}

// LauncherApp is bound to the webview. Its exported methods are the
// commands the game UI can invoke.
type LauncherApp struct {
	ctx         context.Context
	ctxMu       sync.RWMutex
	cfg         config.Config
	db          *gormdb.DB
	settings    repository.SystemSettingRepository
	hub         *handler.WebSocketHub
	server      *core.ManagedServer
	coordinator *shutdown.Coordinator
	tray        *TrayManager
	quitting    atomic.Bool
}

// NewLauncherApp opens the settings store and wires the shutdown
// coordinator. The returned coordinator is used by main once the event
// loop returns.
func NewLauncherApp(opts Options) (*LauncherApp, *shutdown.Coordinator, error) {
	cfg := opts.Config
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	var db *gormdb.DB
	var err error
	if cfg.DSN != "" {
		db, err = gormdb.NewDBWithDSN(cfg.DSN)
	} else {
		db, err = gormdb.NewDB(cfg.DBPath())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}

	hub := opts.Hub
	if hub == nil {
		hub = handler.NewWebSocketHub()
	}
	proc := opts.Process
	if proc == nil {
		proc = shutdown.NewOSProcess()
	}

	a := &LauncherApp{
		cfg:      cfg,
		db:       db,
		settings: gormdb.NewSystemSettingRepository(db),
		hub:      hub,
	}

	coordinatorOpts := []shutdown.Option{shutdown.WithObserver(newShutdownBroadcaster(hub))}
	if cfg.GracePeriod > 0 {
		coordinatorOpts = append(coordinatorOpts, shutdown.WithGracePeriod(cfg.GracePeriod))
	}
	a.coordinator = shutdown.NewCoordinator(&wailsHost{app: a}, proc, coordinatorOpts...)

	// 退出时 watchdog 只给 GracePeriod，排空与关闭 HTTP 服务器都必须在此之内完成
	budget := a.coordinator.GracePeriod()
	a.server = core.NewManagedServer(&core.ServerConfig{
		Addr:            cfg.Addr,
		Hub:             hub,
		Trigger:         a.coordinator,
		ServeStatic:     true,
		DrainTimeout:    budget / 3,
		ShutdownTimeout: budget / 3,
	})

	return a, a.coordinator, nil
}

// Startup 在 Wails 启动时调用
func (a *LauncherApp) Startup(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()

	log.Printf("[Launcher] Starting %s", version.Info())
	if err := a.server.Start(ctx); err != nil {
		log.Printf("[Launcher] Failed to start HTTP server: %v", err)
		a.logPortOwner()
	}

	tray := NewTrayManager(ctx, a)
	a.ctxMu.Lock()
	a.tray = tray
	a.ctxMu.Unlock()
	go tray.Start()
}

// DomReady 页面加载完成时调用
func (a *LauncherApp) DomReady(ctx context.Context) {
	log.Println("[Launcher] Window loaded successfully")
	if fullscreen, _ := a.settings.Get(domain.SettingKeyWindowFullscreen); fullscreen == "true" && runtimeReady(ctx) {
		runtime.WindowFullscreen(ctx)
	}
}

// Shutdown 在 Wails 事件循环结束前调用，释放所有资源
func (a *LauncherApp) Shutdown(ctx context.Context) {
	log.Println("[Launcher] Shutting down...")
	a.quitting.Store(true)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.coordinator.GracePeriod())
	defer cancel()
	if err := a.server.Stop(stopCtx); err != nil {
		log.Printf("[Launcher] Failed to stop HTTP server: %v", err)
	}
	a.hub.Close()
	if err := a.db.Close(); err != nil {
		log.Printf("[Launcher] Failed to close database: %v", err)
	}
	log.Println("[Launcher] Shutdown complete")
}

// CloseApp terminates the application. The call returns before the process
// exits; the page that invoked it is about to be destroyed.
func (a *LauncherApp) CloseApp() {
	log.Println("[Launcher] close_app invoked")
	a.quitting.Store(true)
	a.coordinator.Shutdown("close_app")
}

// Quit 托盘或菜单的退出入口
func (a *LauncherApp) Quit() {
	a.quitting.Store(true)
	a.coordinator.Shutdown("quit")
}

// GetVersion 返回版本信息
func (a *LauncherApp) GetVersion() string {
	return version.Version
}

// GetResolutions 返回可选分辨率
func (a *LauncherApp) GetResolutions() []domain.Resolution {
	return domain.SupportedResolutions
}

// GetResolution 返回当前保存的分辨率
func (a *LauncherApp) GetResolution() domain.Resolution {
	return a.InitialResolution()
}

// SetResolution 调整窗口大小并保存
func (a *LauncherApp) SetResolution(width, height int) error {
	res := domain.Resolution{Width: width, Height: height}
	if err := res.Validate(); err != nil {
		return err
	}

	if ctx := a.context(); runtimeReady(ctx) {
		runtime.WindowUnfullscreen(ctx)
		runtime.WindowSetSize(ctx, width, height)
		runtime.WindowCenter(ctx)
	}

	if err := a.settings.Set(domain.SettingKeyWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	if err := a.settings.Set(domain.SettingKeyWindowHeight, strconv.Itoa(height)); err != nil {
		return err
	}
	log.Printf("[Launcher] Resolution set to %s", res)
	return nil
}

// ToggleFullscreen 切换全屏并保存
func (a *LauncherApp) ToggleFullscreen(enable bool) error {
	if ctx := a.context(); runtimeReady(ctx) {
		if enable {
			runtime.WindowFullscreen(ctx)
		} else {
			runtime.WindowUnfullscreen(ctx)
		}
	}
	return a.settings.Set(domain.SettingKeyWindowFullscreen, strconv.FormatBool(enable))
}

// ResetDisplaySettings 清除保存的分辨率与全屏设置，窗口恢复为默认大小
func (a *LauncherApp) ResetDisplaySettings() error {
	for _, key := range []string{
		domain.SettingKeyWindowWidth,
		domain.SettingKeyWindowHeight,
		domain.SettingKeyWindowFullscreen,
	} {
		if err := a.settings.Delete(key); err != nil {
			return err
		}
	}

	if ctx := a.context(); runtimeReady(ctx) {
		runtime.WindowUnfullscreen(ctx)
		runtime.WindowSetSize(ctx, domain.DefaultResolution.Width, domain.DefaultResolution.Height)
		runtime.WindowCenter(ctx)
	}
	log.Printf("[Launcher] Display settings reset to %s", domain.DefaultResolution)
	return nil
}

// InitialResolution 读取保存的窗口大小，无效时使用默认值
func (a *LauncherApp) InitialResolution() domain.Resolution {
	res := domain.DefaultResolution
	w, errW := a.intSetting(domain.SettingKeyWindowWidth)
	h, errH := a.intSetting(domain.SettingKeyWindowHeight)
	if errW != nil || errH != nil {
		return res
	}
	if saved := (domain.Resolution{Width: w, Height: h}); saved.Validate() == nil {
		res = saved
	}
	return res
}

// StartFullscreen 是否以全屏启动
func (a *LauncherApp) StartFullscreen() bool {
	v, err := a.settings.Get(domain.SettingKeyWindowFullscreen)
	return err == nil && v == "true"
}

// CheckServerStatus 返回 HTTP 服务器状态
func (a *LauncherApp) CheckServerStatus() ServerStatus {
	return ServerStatus{
		Ready: a.server.IsRunning(),
		Addr:  a.server.Addr(),
	}
}

// GetServerAddress 返回浏览器可访问的地址
func (a *LauncherApp) GetServerAddress() string {
	if !a.server.IsRunning() {
		return ""
	}
	return "http://" + a.server.Addr()
}

// RestartServer 重启 HTTP 服务器
func (a *LauncherApp) RestartServer() error {
	ctx := a.context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.server.Restart(ctx); err != nil {
		log.Printf("[Launcher] Failed to restart HTTP server: %v", err)
		return err
	}
	return nil
}

func (a *LauncherApp) context() context.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}

func (a *LauncherApp) trayManager() *TrayManager {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.tray
}

func (a *LauncherApp) intSetting(key string) (int, error) {
	v, err := a.settings.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return n, nil
}

func (a *LauncherApp) logPortOwner() {
	_, portStr, err := net.SplitHostPort(a.cfg.Addr)
	if err != nil {
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return
	}
	pid, err := CheckPortOccupied(port)
	if err != nil {
		log.Printf("[Launcher] %v", err)
		return
	}
	if pid > 0 {
		log.Printf("[Launcher] Port %d is held by PID %d", port, pid)
	}
}
