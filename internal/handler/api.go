package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/awsl-project/tower/internal/shutdown"
	"github.com/bytedance/sonic"
)

// ShutdownTrigger 触发应用关闭
type ShutdownTrigger interface {
	Shutdown(reason string) *shutdown.Request
}

// APIHandler 处理 /api/ 下的请求
type APIHandler struct {
	trigger ShutdownTrigger
}

// NewAPIHandler creates the API handler. trigger may be nil, in which case
// the close endpoint is not available.
func NewAPIHandler(trigger ShutdownTrigger) *APIHandler {
	return &APIHandler{trigger: trigger}
}

// ServeHTTP routes /api/* requests
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/health":
		h.handleHealth(w, r)
	case "/api/app/close":
		h.handleClose(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "API endpoint not found"})
	}
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UnixMilli(),
	})
}

func (h *APIHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.trigger == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "API endpoint not found"})
		return
	}
	if !sameOrigin(r) {
		log.Printf("[API] Rejected close request from origin %s", r.Header.Get("Origin"))
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cross-origin request rejected"})
		return
	}

	req := h.trigger.Shutdown("http")
	log.Printf("[API] Close requested by %s", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":          req.ID,
		"gracePeriod": req.GracePeriod.Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
