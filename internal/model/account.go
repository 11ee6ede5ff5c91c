// Package model はドメインモデルを定義する。
package model

import "time"

// Account は資格情報を含むアカウントレコードを表す。
// PasswordHash は PasswordSalt なしでは導出できない。
type Account struct {
	ID           string
	Email        string // 小文字化・trim済み
	DisplayName  string
	Avatar       string
	PasswordSalt string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountPatch はプロフィール更新の差分を表す。nilのフィールドは変更しない。
type AccountPatch struct {
	DisplayName *string
	Avatar      *string
	Email       *string
}

// IsEmpty は変更対象のフィールドが1つもないかを返す。
func (p AccountPatch) IsEmpty() bool {
	return p.DisplayName == nil && p.Avatar == nil && p.Email == nil
}

// AccountPublic はクライアントに返す公開用の射影。資格情報は含まない。
type AccountPublic struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Public はAccountの公開用射影を返す。
func (a *Account) Public() AccountPublic {
	return AccountPublic{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Email:       a.Email,
		Avatar:      a.Avatar,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// Identity は認証済みリクエストに紐づく主体を表す。
type Identity struct {
	AccountID string
	Email     string
}
