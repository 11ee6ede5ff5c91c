// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/duniaauth/internal/model"
)

// ErrEmailTaken はメールアドレスの一意制約に違反したことを表す。
var ErrEmailTaken = errors.New("email already taken")

// ErrAccountNotFound は更新対象のアカウントが存在しないことを表す。
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository はアカウントデータの永続化インターフェース。
// メールアドレスの一意性はこの層で保証する。
type AccountRepository interface {
	// Create はアカウントを作成する。メールアドレスが重複する場合は ErrEmailTaken を返す。
	Create(ctx context.Context, account *model.Account) error

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// EmailTakenByOther は excludeID 以外のアカウントがメールアドレスを使用中かを返す。
	EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error)

	// Update はpatchの非nilフィールドとupdated_atを更新し、更新後のアカウントを返す。
	// 存在しない場合は ErrAccountNotFound、メールアドレスが重複する場合は ErrEmailTaken を返す。
	Update(ctx context.Context, id string, patch model.AccountPatch, updatedAt time.Time) (*model.Account, error)
}

// HealthChecker はストレージの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}
