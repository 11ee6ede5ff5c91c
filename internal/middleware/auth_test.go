package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/duniaauth/internal/auth"
	"github.com/hitoshi/duniaauth/internal/model"
	"github.com/hitoshi/duniaauth/internal/session"
	"github.com/hitoshi/duniaauth/internal/token"
)

const testSecret = "test-jwt-secret"

type mockAuthenticator struct {
	authenticateFn func(tok string) (*model.Identity, error)
}

func (m *mockAuthenticator) Authenticate(tok string) (*model.Identity, error) {
	return m.authenticateFn(tok)
}

func issueTestToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := token.NewCodec().Issue(testSecret, token.Subject{ID: sub, Email: "a@x.com"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return tok
}

// newGuardedHandler は認証ガードの内側で認証済みIDを記録するハンドラーを返す。
func newGuardedHandler(secret string, captured *model.Identity, called *bool) http.Handler {
	guard := NewAuthMiddleware(
		session.NewTransport(session.Config{}),
		auth.NewAuthenticator(secret, token.NewCodec(), nil),
	)
	return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestAuthMiddleware_ValidBearerToken_BindsIdentity(t *testing.T) {
	var identity model.Identity
	var called bool
	handler := newGuardedHandler(testSecret, &identity, &called)

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "acc-1"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !called {
		t.Fatal("next handler should be called")
	}
	if identity.AccountID != "acc-1" || identity.Email != "a@x.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestAuthMiddleware_ValidCookie_BindsIdentity(t *testing.T) {
	var identity model.Identity
	var called bool
	handler := newGuardedHandler(testSecret, &identity, &called)

	req := httptest.NewRequest(http.MethodGet, "/accounts/acc-2", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: issueTestToken(t, "acc-2")})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if identity.AccountID != "acc-2" {
		t.Errorf("AccountID = %q, want %q", identity.AccountID, "acc-2")
	}
}

// Bearerヘッダーが有効ならCookieより優先されることを検証する。
func TestAuthMiddleware_BearerTakesPrecedenceOverCookie(t *testing.T) {
	var identity model.Identity
	var called bool
	handler := newGuardedHandler(testSecret, &identity, &called)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "from-header"))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: issueTestToken(t, "from-cookie")})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if identity.AccountID != "from-header" {
		t.Errorf("AccountID = %q, want %q", identity.AccountID, "from-header")
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		setup      func(r *http.Request)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "トークンなし",
			secret:     testSecret,
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
		{
			name:   "改ざんされたトークン",
			secret: testSecret,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueTestToken(t, "acc-1")+"x")
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
		{
			name:   "空のBearerと不正なCookie",
			secret: testSecret,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer   ")
				r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "garbage"})
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.ErrCodeUnauthorized,
		},
		{
			name:   "シークレット未設定",
			secret: "",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+issueTestToken(t, "acc-1"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   model.ErrCodeMisconfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var identity model.Identity
			var called bool
			handler := newGuardedHandler(tt.secret, &identity, &called)

			req := httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called {
				t.Error("next handler should not be called")
			}
			if got := decodeErrorBody(t, w); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

// APIError以外のエラーは内部情報を出さずに500を返すことを検証する。
func TestAuthMiddleware_UnexpectedError_Returns500(t *testing.T) {
	guard := NewAuthMiddleware(
		session.NewTransport(session.Config{}),
		&mockAuthenticator{authenticateFn: func(string) (*model.Identity, error) {
			return nil, errors.New("keystore unavailable")
		}},
	)
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := decodeErrorBody(t, w); got.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeInternal)
	}
}

func TestAccountIDFromContext(t *testing.T) {
	if _, err := AccountIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithIdentity(context.Background(), model.Identity{AccountID: "acc-1"})
	id, err := AccountIDFromContext(ctx)
	if err != nil {
		t.Fatalf("AccountIDFromContext returned error: %v", err)
	}
	if id != "acc-1" {
		t.Errorf("id = %q, want %q", id, "acc-1")
	}

	// 空のアカウントIDは未認証として扱う
	if _, ok := IdentityFromContext(ContextWithIdentity(context.Background(), model.Identity{})); ok {
		t.Error("empty identity should not be treated as authenticated")
	}
}

// chi.Routerのグループ内で認証ガードとロギングが連携して動作することを検証する。
func TestRouterIntegration_GuardedGroup(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/public", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(
			session.NewTransport(session.Config{}),
			auth.NewAuthenticator(testSecret, token.NewCodec(), nil),
		))
		r.Get("/private/{id}", func(w http.ResponseWriter, r *http.Request) {
			accountID, _ := AccountIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{
				"account_id": accountID,
				"param":      chi.URLParam(r, "id"),
			})
		})
	})

	// 公開ルートは認証不要
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	if w.Code != http.StatusOK {
		t.Errorf("public status = %d, want %d", w.Code, http.StatusOK)
	}

	// 保護ルートはトークンなしで401
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private/acc-1", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("private status without token = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// 有効なトークンで200
	req := httptest.NewRequest(http.MethodGet, "/private/acc-1", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "acc-1"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("private status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["account_id"] != "acc-1" || body["param"] != "acc-1" {
		t.Errorf("body = %v", body)
	}
}
