package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// 系统设置键
const (
	SettingKeyWindowWidth      = "window_width"
	SettingKeyWindowHeight     = "window_height"
	SettingKeyWindowFullscreen = "window_fullscreen"
)

// SystemSetting 持久化的键值设置
type SystemSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Resolution 窗口分辨率
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// 窗口尺寸限制
var (
	DefaultResolution = Resolution{Width: 1280, Height: 720}
	MinResolution     = Resolution{Width: 800, Height: 600}
)

// SupportedResolutions 游戏设置界面可选的分辨率
var SupportedResolutions = []Resolution{
	{Width: 800, Height: 600},
	{Width: 1024, Height: 768},
	{Width: 1280, Height: 720},
	{Width: 1366, Height: 768},
	{Width: 1600, Height: 900},
	{Width: 1920, Height: 1080},
	{Width: 2560, Height: 1440},
}

// Validate 检查分辨率是否不小于最小窗口尺寸
func (r Resolution) Validate() error {
	if r.Width < MinResolution.Width || r.Height < MinResolution.Height {
		return fmt.Errorf("resolution %s below minimum %s", r, MinResolution)
	}
	return nil
}
