package auth

import (
	"github.com/hitoshi/duniaauth/internal/metrics"
	"github.com/hitoshi/duniaauth/internal/model"
	"github.com/hitoshi/duniaauth/internal/token"
)

// Authenticator はリクエストから取り出したトークンを検証し、認証済みIDを返す。
// 認証ガードと /auth/me の双方がこの1箇所を通る。
type Authenticator struct {
	secret  string
	codec   *token.Codec
	metrics metrics.MetricsCollector
}

// NewAuthenticator はAuthenticatorを生成する。secretが空の場合、Authenticateは常に設定不備エラーを返す。
func NewAuthenticator(secret string, codec *token.Codec, collector metrics.MetricsCollector) *Authenticator {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Authenticator{
		secret:  secret,
		codec:   codec,
		metrics: collector,
	}
}

// Authenticate はトークンを検証する。
// シークレット未設定は MISCONFIGURED、トークンの欠落・検証失敗・sub欠落はすべて同一の UNAUTHORIZED を返す。
func (a *Authenticator) Authenticate(tok string) (*model.Identity, error) {
	if a.secret == "" {
		a.metrics.RecordTokenVerification(metrics.TokenMisconfigured)
		return nil, model.NewMisconfiguredError()
	}
	if tok == "" {
		a.metrics.RecordTokenVerification(metrics.TokenMissing)
		return nil, model.NewUnauthorizedError()
	}

	payload, err := a.codec.Verify(a.secret, tok)
	if err != nil || payload.Sub == "" {
		a.metrics.RecordTokenVerification(metrics.TokenInvalid)
		return nil, model.NewUnauthorizedError()
	}

	a.metrics.RecordTokenVerification(metrics.TokenValid)
	return &model.Identity{AccountID: payload.Sub, Email: payload.Email}, nil
}
