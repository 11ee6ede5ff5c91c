package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/duniaauth/internal/account"
	"github.com/hitoshi/duniaauth/internal/middleware"
	"github.com/hitoshi/duniaauth/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Get(ctx context.Context, actorID, id string) (*model.Account, error)
	Update(ctx context.Context, actorID, id string, input account.UpdateInput) (*model.Account, error)
}

// AccountHandler はアカウントプロフィールのHTTPハンドラー。
// 認証ガードの内側に配置する。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

type updateAccountRequest struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
	Email       *string `json:"email"`
}

// GetAccount は自分自身のアカウントを返す。
// GET /accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	acc, err := h.service.Get(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acc.Public())
}

// UpdateAccount は自分自身のプロフィールを部分更新する。
// PATCH /accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if id != actorID {
		middleware.WriteAPIError(w, model.NewForbiddenError())
		return
	}

	var req updateAccountRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError())
		return
	}

	acc, err := h.service.Update(r.Context(), actorID, id, account.UpdateInput{
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		Email:       req.Email,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acc.Public())
}
