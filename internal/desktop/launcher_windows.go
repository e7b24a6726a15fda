//go:build windows

package desktop

import (
	"context"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// BeforeClose Windows: 隐藏到托盘，不退出；正在退出时放行
func (a *LauncherApp) BeforeClose(ctx context.Context) bool {
	if a.quitting.Load() {
		log.Println("[Launcher] Window close requested while quitting")
		return false
	}
	log.Println("[Launcher] Window close requested - hiding to tray")
	runtime.WindowHide(ctx)
	return true
}
