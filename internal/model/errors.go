// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, identity, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodePresenceNotFound   = "PRESENCE_NOT_FOUND"
	ErrCodeLinkNotFound       = "LINK_NOT_FOUND"
	ErrCodeLinkConflict       = "LINK_CONFLICT"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeInvalidDisplayName = "INVALID_DISPLAY_NAME"
	ErrCodeEphemeralFlagStale = "EPHEMERAL_FLAG_STALE"
)

// notFoundCodes はNotFound系として扱うエラーコードの集合。
var notFoundCodes = map[string]bool{
	ErrCodeUserNotFound:     true,
	ErrCodeSessionNotFound:  true,
	ErrCodePresenceNotFound: true,
	ErrCodeLinkNotFound:     true,
}

// IsNotFound はエラーがNotFound系のAPIErrorかどうかを判定する。
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.Code]
	}
	return false
}

// IsConflict はエラーが一意制約違反のAPIErrorかどうかを判定する。
func IsConflict(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeLinkConflict
	}
	return false
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "identity",
		Action:   "セッションを取得し直してください。",
	}
}

// NewSessionNotFoundError はセッションが見つからない場合のエラーを生成する。
func NewSessionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  "セッションが見つかりません。",
		Category: "auth",
		Action:   "ページを再読み込みして新しいセッションを取得してください。",
	}
}

// NewPresenceNotFoundError はプレゼンス行が存在しない場合のエラーを生成する。
// 回収ワーカーによる並行削除の後にハートビートが届いた場合に発生する。
func NewPresenceNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodePresenceNotFound,
		Message:  fmt.Sprintf("プレゼンスが見つかりません: %s", sessionID),
		Category: "identity",
		Action:   "セッションを取得し直してください。",
	}
}

// NewLinkConflictError はアカウント紐付けの一意制約違反エラーを生成する。
func NewLinkConflictError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeLinkConflict,
		Message:  fmt.Sprintf("このプロバイダーは既に他のユーザーに紐付けられています: %s", provider),
		Category: "auth",
		Action:   "別のアカウントでログインし直してください。",
	}
}

// NewInvalidTokenError は不正な形式のセッショントークンエラーを生成する。
// セッション解決では伝播させず、新規発行へフォールバックするために使う。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "セッショントークンの形式が不正です。",
		Category: "validation",
		Action:   "Cookieを削除して再度アクセスしてください。",
	}
}

// NewInvalidDisplayNameError は表示名バリデーションエラーを生成する。
func NewInvalidDisplayNameError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDisplayName,
		Message:  fmt.Sprintf("無効な表示名です: %s", reason),
		Category: "validation",
		Action:   "1〜32文字の表示名を入力してください。",
	}
}

// NewEphemeralFlagStaleError は紐付け解除後のフラグ更新失敗を表すエラーを生成する。
// 紐付け行の削除自体は成功しており、ephemeralフラグだけが古い可能性がある。
// フラグは再導出可能なキャッシュなので、再実行で回復できる。
func NewEphemeralFlagStaleError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeEphemeralFlagStale,
		Message:  fmt.Sprintf("紐付け解除後のephemeralフラグ更新に失敗しました: %s", userID),
		Category: "system",
		Action:   "操作を再実行してください。",
	}
}
