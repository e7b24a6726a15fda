package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogWriter 将日志同时写入控制台、日志文件，并推送给浏览器
type LogWriter struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	hub     *WebSocketHub
}

// NewLogWriter creates a log writer. logPath may be empty to skip the file,
// hub may be nil to skip broadcasting.
func NewLogWriter(hub *WebSocketHub, console io.Writer, logPath string) (*LogWriter, error) {
	w := &LogWriter{console: console, hub: hub}
	if logPath == "" {
		return w, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	w.file = f
	return w, nil
}

// Write 实现 io.Writer；文件写入失败不影响控制台输出
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.console.Write(p)
	if w.file != nil {
		w.file.Write(p)
	}
	if w.hub != nil {
		// BroadcastMessage 不阻塞，慢客户端直接丢弃
		w.hub.BroadcastMessage("log", strings.TrimRight(string(p), "\n"))
	}
	return n, err
}

// Close 关闭日志文件
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
