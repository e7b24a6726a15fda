package desktop

import (
	"context"
	"net/http"
	goruntime "runtime"
	"sync"
	"testing"
	"time"

	"github.com/awsl-project/tower/internal/config"
	"github.com/awsl-project/tower/internal/domain"
	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcess struct {
	mu      sync.Mutex
	exits   []int
	aborted int
}

func (p *recordingProcess) Exit(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exits = append(p.exits, code)
}

func (p *recordingProcess) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aborted++
}

func (p *recordingProcess) snapshot() ([]int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.exits...), p.aborted
}

func newTestLauncher(t *testing.T) (*LauncherApp, *shutdown.Coordinator, *recordingProcess) {
	t.Helper()
	proc := &recordingProcess{}
	app, coordinator, err := NewLauncherApp(Options{
		Config: config.Config{
			Addr:        "127.0.0.1:0",
			DataDir:     t.TempDir(),
			GracePeriod: 50 * time.Millisecond,
		},
		Process: proc,
	})
	require.NoError(t, err)
	return app, coordinator, proc
}

func TestLauncherResolutionSettings(t *testing.T) {
	app, _, _ := newTestLauncher(t)
	t.Cleanup(func() { app.db.Close() })

	assert.Equal(t, domain.DefaultResolution, app.InitialResolution())
	assert.Equal(t, domain.SupportedResolutions, app.GetResolutions())

	require.NoError(t, app.SetResolution(1920, 1080))
	assert.Equal(t, domain.Resolution{Width: 1920, Height: 1080}, app.GetResolution())

	assert.Error(t, app.SetResolution(640, 480))
	assert.Equal(t, domain.Resolution{Width: 1920, Height: 1080}, app.InitialResolution())

	assert.False(t, app.StartFullscreen())
	require.NoError(t, app.ToggleFullscreen(true))
	assert.True(t, app.StartFullscreen())
	require.NoError(t, app.ToggleFullscreen(false))
	assert.False(t, app.StartFullscreen())
}

func TestLauncherResetDisplaySettings(t *testing.T) {
	app, _, _ := newTestLauncher(t)
	t.Cleanup(func() { app.db.Close() })

	// 没有保存过设置时也能重置
	require.NoError(t, app.ResetDisplaySettings())

	require.NoError(t, app.SetResolution(1600, 900))
	require.NoError(t, app.ToggleFullscreen(true))
	require.NoError(t, app.ResetDisplaySettings())

	assert.Equal(t, domain.DefaultResolution, app.InitialResolution())
	assert.False(t, app.StartFullscreen())
	settings, err := app.settings.GetAll()
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestLauncherIgnoresCorruptResolution(t *testing.T) {
	app, _, _ := newTestLauncher(t)
	t.Cleanup(func() { app.db.Close() })

	require.NoError(t, app.settings.Set(domain.SettingKeyWindowWidth, "wide"))
	require.NoError(t, app.settings.Set(domain.SettingKeyWindowHeight, "720"))
	assert.Equal(t, domain.DefaultResolution, app.InitialResolution())

	require.NoError(t, app.settings.Set(domain.SettingKeyWindowWidth, "320"))
	assert.Equal(t, domain.DefaultResolution, app.InitialResolution())
}

func TestLauncherLifecycle(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("starts a real system tray on Windows")
	}
	app, coordinator, proc := newTestLauncher(t)

	app.Startup(context.Background())
	status := app.CheckServerStatus()
	require.True(t, status.Ready)

	resp, err := http.Get(app.GetServerAddress() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.RestartServer())
	assert.True(t, app.CheckServerStatus().Ready)

	// 事件循环正常结束：释放资源后以 0 退出
	start := time.Now()
	app.Shutdown(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, app.CheckServerStatus().Ready)
	assert.Empty(t, app.GetServerAddress())

	coordinator.Exit()
	exits, aborted := proc.snapshot()
	assert.Equal(t, []int{0}, exits)
	assert.Zero(t, aborted)
}

func TestCloseAppAbortsWhenRuntimeDoesNotQuit(t *testing.T) {
	app, coordinator, proc := newTestLauncher(t)
	t.Cleanup(func() { app.db.Close() })

	// 没有 Wails runtime：主窗口无法关闭，Quit 不会结束事件循环
	app.CloseApp()

	assert.Eventually(t, func() bool {
		_, aborted := proc.snapshot()
		return aborted == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, coordinator.Terminated())
	assert.True(t, app.quitting.Load())

	// 已终止后 Exit 不再产生第二个结果
	coordinator.Exit()
	exits, aborted := proc.snapshot()
	assert.Empty(t, exits)
	assert.Equal(t, 1, aborted)
}

func TestHostWindowsWithoutRuntime(t *testing.T) {
	app, _, _ := newTestLauncher(t)
	t.Cleanup(func() { app.db.Close() })

	host := &wailsHost{app: app}
	windows := host.Windows()
	require.Len(t, windows, 1)
	assert.Equal(t, "main", windows[0].Label())
	assert.ErrorIs(t, windows[0].Close(), errWindowNotReady)

	assert.NotPanics(t, host.Quit)
}
