package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/duniaauth/internal/model"
)

// MemoryAccountRepo はプロセス内メモリにアカウントを保持するリポジトリ。
// STORAGE_DRIVER=memory での起動とテストで使用する。プロセス終了で内容は失われる。
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
	byEmail  map[string]string // email -> id
}

// NewMemoryAccountRepo はMemoryAccountRepoを生成する。
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts: make(map[string]model.Account),
		byEmail:  make(map[string]string),
	}
}

// Create はアカウントを作成する。
func (r *MemoryAccountRepo) Create(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return ErrEmailTaken
	}
	r.accounts[account.ID] = *account
	r.byEmail[account.Email] = account.ID
	return nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *MemoryAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *MemoryAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	account := r.accounts[id]
	return &account, nil
}

// EmailTakenByOther は excludeID 以外のアカウントがメールアドレスを使用中かを返す。
func (r *MemoryAccountRepo) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	return ok && id != excludeID, nil
}

// Update はpatchの非nilフィールドとupdated_atを更新し、更新後のアカウントを返す。
func (r *MemoryAccountRepo) Update(ctx context.Context, id string, patch model.AccountPatch, updatedAt time.Time) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	if patch.Email != nil && *patch.Email != account.Email {
		if owner, taken := r.byEmail[*patch.Email]; taken && owner != id {
			return nil, ErrEmailTaken
		}
		delete(r.byEmail, account.Email)
		account.Email = *patch.Email
		r.byEmail[account.Email] = id
	}
	if patch.DisplayName != nil {
		account.DisplayName = *patch.DisplayName
	}
	if patch.Avatar != nil {
		account.Avatar = *patch.Avatar
	}
	account.UpdatedAt = updatedAt

	r.accounts[id] = account
	return &account, nil
}

// PingContext は常に成功する。
func (r *MemoryAccountRepo) PingContext(ctx context.Context) error {
	return nil
}

// compile-time interface check
var _ AccountRepository = (*MemoryAccountRepo)(nil)
