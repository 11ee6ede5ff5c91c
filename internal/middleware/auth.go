// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/duniaauth/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIDを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenResolver はリクエストからトークンを取り出す。session.Transport が実装する。
type TokenResolver interface {
	ResolveToken(r *http.Request) string
}

// IdentityAuthenticator はトークンを検証して認証済みIDを返す。auth.Authenticator が実装する。
type IdentityAuthenticator interface {
	Authenticate(tok string) (*model.Identity, error)
}

// NewAuthMiddleware はBearerヘッダーまたはセッションCookieのトークンを検証し、
// 認証済みIDをリクエストコンテキストに注入するミドルウェアを返す。
// シークレット未設定時は500、トークンの欠落・不正・期限切れは一律401を返す。
func NewAuthMiddleware(resolver TokenResolver, authenticator IdentityAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(resolver.ResolveToken(r))
			if err != nil {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) {
					slog.Error("failed to authenticate request", slog.String("error", err.Error()))
					WriteInternalServerError(w)
					return
				}
				WriteAPIError(w, apiErr)
				return
			}

			setLoggedAccountID(r.Context(), identity.AccountID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), *identity)))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.AccountID == "" {
		return model.Identity{}, false
	}
	return identity, true
}

// AccountIDFromContext はリクエストコンテキストから認証済みアカウントIDを取得する。
func AccountIDFromContext(ctx context.Context) (string, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("account ID not found in context")
	}
	return identity.AccountID, nil
}

// ContextWithIdentity はコンテキストに認証済みIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
