// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/duniaauth/internal/auth"
	"github.com/hitoshi/duniaauth/internal/middleware"
	"github.com/hitoshi/duniaauth/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, input auth.SignupInput) (*auth.Result, error)
	SignIn(ctx context.Context, input auth.SigninInput) (*auth.Result, error)
	CurrentAccount(ctx context.Context, identity *model.Identity) (*model.Account, error)
}

// SessionTransport はトークンの受け渡し方法を抽象化する。session.Transport が実装する。
type SessionTransport interface {
	middleware.TokenResolver
	SetToken(w http.ResponseWriter, r *http.Request, tok string)
	Clear(w http.ResponseWriter, r *http.Request)
}

// AuthHandler はサインアップ・サインイン・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service       AuthServiceInterface
	transport     SessionTransport
	authenticator middleware.IdentityAuthenticator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, transport SessionTransport, authenticator middleware.IdentityAuthenticator) *AuthHandler {
	return &AuthHandler{
		service:       service,
		transport:     transport,
		authenticator: authenticator,
	}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse はサインアップ・サインイン成功時のレスポンス。
// userとaccountは同じ公開プロフィールを指す。
type sessionResponse struct {
	Token   string              `json:"token"`
	User    model.AccountPublic `json:"user"`
	Account model.AccountPublic `json:"account"`
}

type meResponse struct {
	User    model.AccountPublic `json:"user"`
	Account model.AccountPublic `json:"account"`
}

// SignUp はアカウントを作成し、セッションCookieを設定する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		// 解析できないボディは空オブジェクトとして扱い、入力検証に委ねる
		req = signupRequest{}
	}

	result, err := h.service.SignUp(r.Context(), auth.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.writeSession(w, r, result)
}

// SignIn は資格情報を検証し、セッションCookieを設定する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		// 失敗理由を区別しないため、解析エラーも資格情報エラーとして返す
		middleware.WriteAPIError(w, model.NewInvalidCredentialsError())
		return
	}

	result, err := h.service.SignIn(r.Context(), auth.SigninInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.writeSession(w, r, result)
}

// Me は現在のトークンに対応するアカウントを返す。
// 認証ガードを経由せず、ガードと同じトークン解決・検証を自前で行う。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticator.Authenticate(h.transport.ResolveToken(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	account, err := h.service.CurrentAccount(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	public := account.Public()
	writeJSON(w, http.StatusOK, meResponse{User: public, Account: public})
}

// SignOut はセッションCookieを削除する。トークン自体は失効させない。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.transport.Clear(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, result *auth.Result) {
	h.transport.SetToken(w, r, result.Token)
	public := result.Account.Public()
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:   result.Token,
		User:    public,
		Account: public,
	})
}
