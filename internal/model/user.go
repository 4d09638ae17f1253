// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// UserKind はユーザーの種別を表す。
type UserKind string

const (
	// UserKindHuman は人間の利用者を表す。
	UserKindHuman UserKind = "human"
	// UserKindAgent は自動エージェントを表す。
	UserKindAgent UserKind = "agent"
)

// User はサービス利用者を表す。
// 初回アクセス時に匿名（ephemeral=true）で自動作成され、
// 外部プロバイダーを紐付けると ephemeral=false に昇格する。
// EphemeralはLinkedAccountの有無から再導出可能なキャッシュであり、真実の源ではない。
type User struct {
	ID          string
	DisplayName string
	Ephemeral   bool
	Kind        UserKind
	Banned      bool
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// Session はクライアントが保持するトークンとユーザーの対応を表す。
// IDはトークンそのもの（推測不能な不透明文字列）。作成後は変更されない。
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// LinkedAccount は外部ログインプロバイダーとの紐付け情報を表す。
// (UserID, Provider) が一意キー。Metaはプロバイダーのプロフィールblobをそのまま保持する。
type LinkedAccount struct {
	UserID    string
	Provider  string
	Meta      json.RawMessage
	CreatedAt time.Time
}

// Presence はセッション単位のハートビート記録を表す。
// last_seen_atが古くなった行は回収ワーカーの削除対象になる。
type Presence struct {
	SessionID  string
	UserID     string
	LastSeenAt time.Time
}

// ProviderDiscord は主たる外部プロバイダーの識別子。
const ProviderDiscord = "discord"

// FallbackDisplayName は表示名解決がすべて失敗した場合の最終フォールバック。
const FallbackDisplayName = "anon"
