package auth

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hitoshi/duniaauth/internal/model"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail は前後の空白を除去し小文字化する。保存・検索は常に正規化後の値で行う。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail は local@domain.tld 形式かどうかを返す。
func ValidEmail(email string) bool {
	return validation.Validate(email,
		validation.Required,
		validation.Match(emailPattern),
	) == nil
}

// validPassword はパスワードが最小文字数を満たすかを返す。文字数はルーン単位で数える。
func validPassword(password string) bool {
	return validation.Validate(password,
		validation.Required,
		validation.RuneLength(MinPasswordLength, 0),
	) == nil
}

// validateSignup はストレージに触れる前にサインアップ入力を検証する。
// email, password, displayName の順に検査し、最初の違反を返す。
func validateSignup(email, password, displayName string) error {
	if !ValidEmail(email) {
		return model.NewInvalidEmailError()
	}
	if !validPassword(password) {
		return model.NewWeakPasswordError()
	}
	if err := validation.Validate(displayName, validation.Required); err != nil {
		return model.NewMissingDisplayNameError()
	}
	return nil
}
