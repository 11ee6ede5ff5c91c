package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/duniaauth/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

const accountColumns = `id, email, display_name, avatar, password_salt, password_hash, created_at, updated_at`

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
// dbはプロセス起動時に1回だけ開いた接続プールを渡す。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Email, account.DisplayName, account.Avatar,
		account.PasswordSalt, account.PasswordHash, account.CreatedAt, account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	)
	account, err := scanAccount(row)
	// UUIDとして解釈できないIDは存在しないものとして扱う
	if isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		email,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return account, nil
}

// EmailTakenByOther は excludeID 以外のアカウントがメールアドレスを使用中かを返す。
func (r *PostgresAccountRepo) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1 AND id <> $2)`,
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email usage: %w", err)
	}
	return exists, nil
}

// Update はpatchの非nilフィールドとupdated_atを更新し、更新後のアカウントを返す。
func (r *PostgresAccountRepo) Update(ctx context.Context, id string, patch model.AccountPatch, updatedAt time.Time) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts
		 SET display_name = COALESCE($2, display_name),
		     avatar = COALESCE($3, avatar),
		     email = COALESCE($4, email),
		     updated_at = $5
		 WHERE id = $1
		 RETURNING `+accountColumns,
		id, nullString(patch.DisplayName), nullString(patch.Avatar), nullString(patch.Email), updatedAt,
	)
	account, err := scanAccount(row)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if isInvalidTextRepresentation(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// PingContext はデータベースへの疎通を確認する。
func (r *PostgresAccountRepo) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// scanAccount は1行をAccountに読み込む。行がない場合は (nil, nil) を返す。
func scanAccount(row *sql.Row) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.Avatar,
		&account.PasswordSalt, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgerrcode.UniqueViolation
}

func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgerrcode.InvalidTextRepresentation
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
