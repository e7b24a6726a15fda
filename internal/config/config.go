// Package config resolves runtime settings from flags, environment variables
// and defaults, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Environment variables
const (
	EnvAddr    = "TOWER_ADDR"
	EnvDataDir = "TOWER_DATA_DIR"
	EnvDSN     = "TOWER_DSN"
	EnvGrace   = "TOWER_GRACE_PERIOD"
)

// Defaults
const (
	DefaultAddr = "127.0.0.1:3000"
	// DefaultServerGracePeriod 浏览器模式下等待优雅退出的时间
	DefaultServerGracePeriod = 3 * time.Second
	dbFileName               = "tower.db"
	logFileName              = "tower.log"
)

// Config 运行配置
type Config struct {
	Addr        string
	DataDir     string
	DSN         string
	GracePeriod time.Duration
}

// DefaultDataDir returns the default data directory path (~/.config/tower)
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "tower")
}

// Resolve fills empty fields from the environment and then from defaults.
// Values already set (from CLI flags) win.
func (c Config) Resolve() Config {
	if c.Addr == "" {
		c.Addr = firstNonEmpty(os.Getenv(EnvAddr), portFromEnv(), DefaultAddr)
	}
	if c.DataDir == "" {
		c.DataDir = firstNonEmpty(os.Getenv(EnvDataDir), DefaultDataDir())
	}
	if c.DSN == "" {
		c.DSN = os.Getenv(EnvDSN)
	}
	if c.GracePeriod <= 0 {
		if d, err := time.ParseDuration(os.Getenv(EnvGrace)); err == nil && d > 0 {
			c.GracePeriod = d
		}
	}
	return c
}

// DBPath 默认 SQLite 数据库路径
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// LogPath 日志文件路径
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, logFileName)
}

// EnsureDataDir creates the data directory if needed.
func (c Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// portFromEnv 兼容 PORT 环境变量，只监听本机
func portFromEnv() string {
	if port := os.Getenv("PORT"); port != "" {
		return "127.0.0.1:" + port
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
