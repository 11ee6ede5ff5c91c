// Package session はトークンをHTTPリクエスト/レスポンス上でどう運ぶかを決める。
// 受信時は Authorization: Bearer ヘッダーを優先し、なければCookieにフォールバックする。
// 送信時はHttpOnly Cookieに載せる。
package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieName はセッショントークンを保持するCookie名。
const CookieName = "da_auth_token"

// DefaultMaxAge はトークンとCookieの既定の有効期間（7日）。
const DefaultMaxAge = 7 * 24 * time.Hour

const bearerPrefix = "Bearer "

// Config はCookie属性の設定。
type Config struct {
	MaxAge time.Duration
	Domain string
	// TrustProxyHeaders がtrueの場合、X-Forwarded-Proto: https もHTTPSとして扱う。
	TrustProxyHeaders bool
}

// Transport はセッショントークンの読み書きを行う。
type Transport struct {
	config Config
}

// NewTransport はTransportを生成する。MaxAgeが0以下の場合はDefaultMaxAgeを使う。
func NewTransport(config Config) *Transport {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultMaxAge
	}
	return &Transport{config: config}
}

// MaxAge はCookieとトークンの有効期間を返す。
func (t *Transport) MaxAge() time.Duration {
	return t.config.MaxAge
}

// SetToken はセッションCookieにトークンを設定する。
// Secure属性はリクエストがHTTPSで届いた場合のみ付与する。
func (t *Transport) SetToken(w http.ResponseWriter, r *http.Request, tok string) {
	http.SetCookie(w, t.cookie(r, tok, int(t.config.MaxAge/time.Second)))
}

// Clear はセッションCookieを即時失効させる。サーバー側でトークンは無効化されない。
func (t *Transport) Clear(w http.ResponseWriter, r *http.Request) {
	// net/httpではMaxAge<0が "Max-Age=0" として出力される
	http.SetCookie(w, t.cookie(r, "", -1))
}

// ResolveToken はリクエストからトークンを取り出す。
// 優先順位: (1) 空でない Authorization: Bearer <token>、(2) da_auth_token Cookie。
// どちらもなければ空文字列を返す。
func (t *Transport) ResolveToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, bearerPrefix) {
		if tok := strings.TrimSpace(auth[len(bearerPrefix):]); tok != "" {
			return tok
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// IsSecureRequest はリクエストがHTTPSで届いたかを判定する。
func (t *Transport) IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.URL != nil && r.URL.Scheme == "https" {
		return true
	}
	if t.config.TrustProxyHeaders && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return false
}

func (t *Transport) cookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   t.config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
