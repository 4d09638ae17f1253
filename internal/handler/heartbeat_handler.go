package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/haruki/otoba/internal/middleware"
	"github.com/haruki/otoba/internal/presence"
)

// HeartbeatServiceInterface はハートビートハンドラーが必要とするサービスインターフェース。
type HeartbeatServiceInterface interface {
	RecordHeartbeat(ctx context.Context, sessionID string) (*presence.HeartbeatResult, error)
}

// heartbeatResponse はハートビートのJSONレスポンス。
type heartbeatResponse struct {
	OK        bool `json:"ok"`
	Throttled bool `json:"throttled"`
}

// HeartbeatHandler はプレゼンス更新のHTTPハンドラー。
type HeartbeatHandler struct {
	tracker HeartbeatServiceInterface
}

// NewHeartbeatHandler はHeartbeatHandlerを生成する。
func NewHeartbeatHandler(tracker HeartbeatServiceInterface) *HeartbeatHandler {
	return &HeartbeatHandler{
		tracker: tracker,
	}
}

// Beat はセッションのプレゼンスを更新する。
// POST /api/heartbeat
// スロットル窓内の呼び出しも成功として200を返す（throttled: true）。
func (h *HeartbeatHandler) Beat(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.tracker.RecordHeartbeat(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(heartbeatResponse{
		OK:        result.OK,
		Throttled: result.Throttled,
	})
}
