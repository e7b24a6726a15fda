package handler

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWriterFansOut(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "tower.log")

	w, err := NewLogWriter(NewWebSocketHub(), &console, logPath)
	require.NoError(t, err)

	n, err := w.Write([]byte("[Test] hello\n"))
	require.NoError(t, err)
	assert.Equal(t, len("[Test] hello\n"), n)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, "[Test] hello\n", console.String())
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "[Test] hello\n", string(content))

	// 文件关闭后仍写控制台
	_, err = w.Write([]byte("after close\n"))
	require.NoError(t, err)
	assert.Contains(t, console.String(), "after close")
}

func TestLogWriterWithoutFile(t *testing.T) {
	var console bytes.Buffer
	w, err := NewLogWriter(nil, &console, "")
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, "line\n", console.String())
	assert.NoError(t, w.Close())
}

func TestLoggingMiddleware(t *testing.T) {
	var out bytes.Buffer
	log.SetOutput(&out)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		path   string
		logged bool
	}{
		{"/api/health", true},
		{"/api", true},
		{"/index.html", false},
		{"/apiary", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			out.Reset()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusTeapot, rec.Code)
			if tt.logged {
				assert.Contains(t, out.String(), "[HTTP] GET "+tt.path+" 418")
			} else {
				assert.Empty(t, out.String())
			}
		})
	}
}
