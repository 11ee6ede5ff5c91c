package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/duniaauth/internal/repository"
)

// healthCheckTimeout はストレージ疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// serviceName はルートエンドポイントが返すサービス名。
const serviceName = "dunia-aplikasi-be"

// HealthHandler は死活監視用のHTTPハンドラー。
type HealthHandler struct {
	checker repository.HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。checkerがnilの場合は常に正常を返す。
func NewHealthHandler(checker repository.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Root はサービス名を返す。
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"name": serviceName,
	})
}

// Health はストレージへの疎通を確認する。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.checker.PingContext(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
