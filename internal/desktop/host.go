package desktop

import (
	"context"
	"errors"

	"github.com/awsl-project/tower/internal/handler"
	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var errWindowNotReady = errors.New("window runtime not ready")

// runtimeReady 检查 ctx 是否由 Wails 创建；Wails runtime 在缺少 frontend 时会直接 log.Fatal
func runtimeReady(ctx context.Context) bool {
	return ctx != nil && ctx.Value("frontend") != nil
}

// wailsHost exposes the launcher to the shutdown coordinator
type wailsHost struct {
	app *LauncherApp
}

// Windows 返回当前所有可关闭的窗口：webview 主窗口、托盘和浏览器标签页
func (h *wailsHost) Windows() []shutdown.Window {
	windows := []shutdown.Window{&mainWindow{ctx: h.app.context()}}
	if tray := h.app.trayManager(); tray != nil {
		if w := tray.Window(); w != nil {
			windows = append(windows, w)
		}
	}
	return append(windows, h.app.hub.Windows()...)
}

// Quit 请求 Wails 结束事件循环
func (h *wailsHost) Quit() {
	h.app.quitting.Store(true)
	if ctx := h.app.context(); runtimeReady(ctx) {
		runtime.Quit(ctx)
	}
}

type mainWindow struct {
	ctx context.Context
}

func (w *mainWindow) Label() string { return "main" }

func (w *mainWindow) Close() error {
	if !runtimeReady(w.ctx) {
		return errWindowNotReady
	}
	runtime.WindowHide(w.ctx)
	return nil
}

// shutdownBroadcaster 把关闭事件推送给浏览器页面
type shutdownBroadcaster struct {
	hub *handler.WebSocketHub
}

func newShutdownBroadcaster(hub *handler.WebSocketHub) *shutdownBroadcaster {
	return &shutdownBroadcaster{hub: hub}
}

func (b *shutdownBroadcaster) OnShutdownEvent(req *shutdown.Request, event shutdown.Event, detail string) {
	data := map[string]any{"event": string(event)}
	if detail != "" {
		data["detail"] = detail
	}
	if req != nil {
		data["id"] = req.ID
		data["reason"] = req.Reason
		data["deadline"] = req.Deadline().UnixMilli()
	}
	b.hub.BroadcastMessage("shutdown", data)
}
