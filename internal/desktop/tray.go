//go:build windows

package desktop

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/getlantern/systray"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed icon.ico
var iconData []byte

// TrayManager 管理系统托盘
type TrayManager struct {
	ctx              context.Context
	app              *LauncherApp
	ready            atomic.Bool
	menuShow         *systray.MenuItem
	menuServerStatus *systray.MenuItem
	menuServerAddr   *systray.MenuItem
	menuRestart      *systray.MenuItem
	menuQuit         *systray.MenuItem
}

// NewTrayManager 创建托盘管理器
func NewTrayManager(ctx context.Context, app *LauncherApp) *TrayManager {
	return &TrayManager{
		ctx: ctx,
		app: app,
	}
}

// Start 启动托盘（阻塞直到托盘退出）
func (t *TrayManager) Start() {
	systray.Run(t.onReady, t.onExit)
}

// Window 托盘图标在关闭流程中被视为一个窗口
func (t *TrayManager) Window() shutdown.Window {
	if !t.ready.Load() {
		return nil
	}
	return trayWindow{}
}

type trayWindow struct{}

func (trayWindow) Label() string { return "tray" }

func (trayWindow) Close() error {
	systray.Quit()
	return nil
}

func (t *TrayManager) onReady() {
	log.Println("[Tray] Initializing system tray...")

	systray.SetIcon(iconData)
	systray.SetTitle("Tower")
	systray.SetTooltip("Tower Defense")

	t.menuShow = systray.AddMenuItem("显示窗口", "显示主窗口")
	systray.AddSeparator()

	t.menuServerStatus = systray.AddMenuItem("服务器状态: 检查中...", "服务器运行状态")
	t.menuServerStatus.Disable()

	t.menuServerAddr = systray.AddMenuItem("浏览器地址: -", "在浏览器中游玩的地址")
	t.menuServerAddr.Disable()

	systray.AddSeparator()
	t.menuRestart = systray.AddMenuItem("重启服务器", "重启 HTTP 服务器")
	systray.AddSeparator()
	t.menuQuit = systray.AddMenuItem("退出", "退出应用")

	t.ready.Store(true)
	t.UpdateStatus()

	go t.handleMenuEvents()
}

func (t *TrayManager) onExit() {
	t.ready.Store(false)
	log.Println("[Tray] System tray exited")
}

func (t *TrayManager) handleMenuEvents() {
	for {
		select {
		case <-t.menuShow.ClickedCh:
			log.Println("[Tray] Show window clicked")
			runtime.WindowShow(t.ctx)
			runtime.WindowUnminimise(t.ctx)

		case <-t.menuRestart.ClickedCh:
			log.Println("[Tray] Restart server clicked")
			if err := t.app.RestartServer(); err != nil {
				log.Printf("[Tray] Restart failed: %v", err)
			}
			t.UpdateStatus()

		case <-t.menuQuit.ClickedCh:
			log.Println("[Tray] Quit clicked")
			t.app.Quit()
			return
		}
	}
}

// UpdateStatus 更新托盘菜单状态
func (t *TrayManager) UpdateStatus() {
	if !t.ready.Load() {
		return
	}

	status := t.app.CheckServerStatus()
	if status.Ready {
		t.menuServerStatus.SetTitle("服务器状态: 运行中")
	} else {
		t.menuServerStatus.SetTitle("服务器状态: 已停止")
	}

	if addr := t.app.GetServerAddress(); addr != "" {
		t.menuServerAddr.SetTitle(fmt.Sprintf("浏览器地址: %s", addr))
	} else {
		t.menuServerAddr.SetTitle("浏览器地址: -")
	}
}
