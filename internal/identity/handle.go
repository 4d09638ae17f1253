package identity

import (
	"encoding/json"
	"strings"
)

// providerProfile はプロバイダーメタblobのうちハンドル整形に使うフィールド。
// Discordのプロフィール形式（global_name / username / discriminator）を想定する。
// discriminatorは新ユーザー名体系では "0" が番兵値として入る。
type providerProfile struct {
	GlobalName    string `json:"global_name"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

// formatHandle はプロバイダーメタblobから人間可読のハンドルを整形する。
// 優先順位:
//  1. global_name（trim後に非空なら）
//  2. username#discriminator（discriminatorが非空かつ"0"以外の場合のみ）
//  3. username単体
//
// いずれも得られない場合は空文字列を返す。パース失敗も空文字列として扱う。
func formatHandle(meta json.RawMessage) string {
	if len(meta) == 0 {
		return ""
	}

	var profile providerProfile
	if err := json.Unmarshal(meta, &profile); err != nil {
		return ""
	}

	if name := strings.TrimSpace(profile.GlobalName); name != "" {
		return name
	}

	if profile.Username == "" {
		return ""
	}

	if profile.Discriminator != "" && profile.Discriminator != "0" {
		return profile.Username + "#" + profile.Discriminator
	}

	return profile.Username
}
