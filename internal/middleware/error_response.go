package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/duniaauth/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// {"error":{"message":...,"code":...}} の形で返し、内部の詳細は含めない。
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail はエラーの内容。
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusForCategory はエラーカテゴリに対応するHTTPステータスコードを返す。
func StatusForCategory(category string) int {
	switch category {
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryAuth:
		return http.StatusUnauthorized
	case model.CategoryForbidden:
		return http.StatusForbidden
	case model.CategoryNotFound:
		return http.StatusNotFound
	case model.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Error: ErrorDetail{
			Message: apiErr.Message,
			Code:    apiErr.Code,
		},
	}); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteAPIError はカテゴリから決まるステータスコードでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForCategory(apiErr.Category), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
