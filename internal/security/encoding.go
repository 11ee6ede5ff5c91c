// Package security はパスワードハッシュ、乱数生成、URL-safe Base64、
// プロフィール入力のサニタイズといったセキュリティ上の基本部品を提供する。
package security

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/samber/oops"
)

// DefaultSaltBytes はアカウントごとのソルト長（バイト）。
const DefaultSaltBytes = 16

// RandomToken は暗号論的に安全な乱数を byteLength バイト生成し、
// パディングなしのURL-safe Base64文字列として返す。
func RandomToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", oops.Code("AUTH_RANDOM_LENGTH").Errorf("byte length must be positive: %d", byteLength)
	}

	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AUTH_RANDOM_FAILED").Wrap(err)
	}
	return EncodeURLSafe(b), nil
}

// NewSalt はパスワードハッシュ用のソルトを生成する。
func NewSalt() (string, error) {
	return RandomToken(DefaultSaltBytes)
}

var urlSafe = base64.RawURLEncoding.Strict()

// EncodeURLSafe はバイト列を '-' '_' を用いたパディングなしのBase64にエンコードする。
func EncodeURLSafe(b []byte) string {
	return urlSafe.EncodeToString(b)
}

// DecodeURLSafe は EncodeURLSafe の逆変換を行う。
// 余りビットが0でない非正規形の入力は拒否するため、受理した文字列は再エンコードで元に戻る。
func DecodeURLSafe(s string) ([]byte, error) {
	b, err := urlSafe.DecodeString(s)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_BASE64").Wrap(err)
	}
	return b, nil
}
