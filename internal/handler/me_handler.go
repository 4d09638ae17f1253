package handler

import (
	"encoding/json"
	"net/http"

	"github.com/haruki/otoba/internal/middleware"
	"github.com/haruki/otoba/internal/model"
)

// MeHandler は現在のユーザーのプロフィールを扱うHTTPハンドラー。
type MeHandler struct {
	users    UserServiceInterface
	resolver DisplayNameResolver
}

// NewMeHandler はMeHandlerを生成する。
func NewMeHandler(users UserServiceInterface, resolver DisplayNameResolver) *MeHandler {
	return &MeHandler{
		users:    users,
		resolver: resolver,
	}
}

// Get は現在のユーザーのプロフィールを返す。
// GET /api/me
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	displayName := h.resolver.PreferredDisplayName(r.Context(), user.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user, displayName))
}

// updateNameRequest は表示名変更のリクエストボディ。
type updateNameRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateName は現在のユーザーの表示名を変更する。
// PATCH /api/me/name
func (h *MeHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの形式が不正です。",
			Category: "validation",
			Action:   "JSON形式でdisplay_nameを指定してください。",
		})
		return
	}

	user, err := h.users.UpdateDisplayName(r.Context(), userID, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	displayName := h.resolver.PreferredDisplayName(r.Context(), user.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user, displayName))
}
