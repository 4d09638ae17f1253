package session

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenLength はセッショントークンの文字数（32バイトのhex表現）。
const tokenLength = 64

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validToken はトークンがこのサービスの発行形式（64文字の小文字hex）かどうかを判定する。
// 形式不正のトークンはDBに存在し得ないため、照会せずに新規発行へフォールバックできる。
func validToken(token string) bool {
	if len(token) != tokenLength {
		return false
	}
	for _, c := range token {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
