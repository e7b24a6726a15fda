package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"os"
	goruntime "runtime"

	"github.com/awsl-project/tower/internal/config"
	"github.com/awsl-project/tower/internal/desktop"
	"github.com/awsl-project/tower/internal/domain"
	"github.com/awsl-project/tower/internal/handler"
	"github.com/awsl-project/tower/internal/version"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed all:public
var assets embed.FS

func main() {
	publicFS, err := fs.Sub(assets, "public")
	if err != nil {
		log.Fatal("Failed to load embedded assets:", err)
	}
	// 浏览器模式与 webview 使用同一份资源
	handler.StaticFS = publicFS

	cfg := config.Config{}.Resolve()
	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", cfg.DataDir, err)
	}

	hub := handler.NewWebSocketHub()
	logWriter, err := handler.NewLogWriter(hub, os.Stdout, cfg.LogPath())
	if err != nil {
		log.Printf("Warning: %v, logging to stdout only", err)
		logWriter, _ = handler.NewLogWriter(hub, os.Stdout, "")
	}
	log.SetOutput(logWriter)

	app, coordinator, err := desktop.NewLauncherApp(desktop.Options{Config: cfg, Hub: hub})
	if err != nil {
		log.Fatal("Failed to initialize desktop app:", err)
	}

	// Create application menu (only for macOS)
	var appMenu *menu.Menu
	if goruntime.GOOS == "darwin" {
		appMenu = menu.NewMenu()
		appMenu.Append(menu.AppMenu())

		fileMenu := appMenu.AddSubmenu("File")
		fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
			app.Quit()
		})

		appMenu.Append(menu.EditMenu())
	}

	res := app.InitialResolution()
	startState := options.Normal
	if app.StartFullscreen() {
		startState = options.Fullscreen
	}

	err = wails.Run(&options.App{
		Title:            "Tower Defense",
		Width:            res.Width,
		Height:           res.Height,
		MinWidth:         domain.MinResolution.Width,
		MinHeight:        domain.MinResolution.Height,
		WindowStartState: startState,
		AssetServer: &assetserver.Options{
			Assets: publicFS,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			app.Startup(ctx)
		},
		OnDomReady:    app.DomReady,
		OnBeforeClose: app.BeforeClose,
		OnShutdown:    app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Menu: appMenu,
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
		Mac: &mac.Options{
			Appearance: mac.NSAppearanceNameDarkAqua,
			About: &mac.AboutInfo{
				Title:   version.Name,
				Message: "Tower Defense " + version.Full(),
			},
		},
	})

	if err != nil {
		log.Printf("Error: %v", err)
		logWriter.Close()
		os.Exit(1)
	}
	logWriter.Close()

	// 事件循环已结束；若卡在这之后，已触发的 watchdog 会强制终止进程
	coordinator.Exit()
}
