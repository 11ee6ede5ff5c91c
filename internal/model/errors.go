// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Category からHTTPステータスが決まり、クライアントには Code と Message のみを返す。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, forbidden, conflict, not_found, config, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryForbidden  = "forbidden"
	CategoryConflict   = "conflict"
	CategoryNotFound   = "not_found"
	CategoryConfig     = "config"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeMissingDisplayName = "MISSING_DISPLAY_NAME"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMisconfigured      = "MISCONFIGURED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Email tidak valid",
		Category: CategoryValidation,
	}
}

// NewWeakPasswordError はパスワード長不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "Password minimal 8 karakter",
		Category: CategoryValidation,
	}
}

// NewMissingDisplayNameError は表示名未入力エラーを生成する。
func NewMissingDisplayNameError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingDisplayName,
		Message:  "Display name wajib diisi",
		Category: CategoryValidation,
	}
}

// NewInvalidRequestError はリクエストボディの解析エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Request tidak valid",
		Category: CategoryValidation,
	}
}

// NewEmailTakenError はサインアップ時のメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email sudah terdaftar",
		Category: CategoryConflict,
	}
}

// NewEmailInUseError はプロフィール更新時のメールアドレス重複エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email sudah dipakai",
		Category: CategoryConflict,
	}
}

// NewInvalidCredentialsError はサインイン失敗エラーを生成する。
// メールアドレスの存在有無を漏らさないよう、失敗理由に関わらず同一の内容を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Email atau password salah",
		Category: CategoryAuth,
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// トークンの欠落・改ざん・期限切れを区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: CategoryAuth,
	}
}

// NewForbiddenError は他のアカウントへの操作エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Forbidden",
		Category: CategoryForbidden,
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "Not found",
		Category: CategoryNotFound,
	}
}

// NewMisconfiguredError は署名シークレット未設定エラーを生成する。
// クライアントの入力に起因しないサーバー側の設定不備を表す。
func NewMisconfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeMisconfigured,
		Message:  "Server misconfigured (JWT_SECRET)",
		Category: CategoryConfig,
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: CategorySystem,
	}
}
