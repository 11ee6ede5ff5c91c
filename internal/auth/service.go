// Package auth はパスワードによるサインアップ・サインインと、トークンからの本人確認を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/duniaauth/internal/metrics"
	"github.com/hitoshi/duniaauth/internal/model"
	"github.com/hitoshi/duniaauth/internal/repository"
	"github.com/hitoshi/duniaauth/internal/security"
	"github.com/hitoshi/duniaauth/internal/token"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	Secret   string        // トークン署名用シークレット。空の場合は発行時に設定不備エラーを返す
	TokenTTL time.Duration // トークン有効期間
}

// SignupInput はサインアップの入力。
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
}

// SigninInput はサインインの入力。
type SigninInput struct {
	Email    string
	Password string
}

// Result はサインアップ・サインイン成功時の結果。
type Result struct {
	Token   string
	Account *model.Account
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	repo      repository.AccountRepository
	hasher    *security.PasswordHasher
	codec     *token.Codec
	sanitizer *security.ProfileSanitizer
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time

	// dummySalt はメールアドレスが存在しない場合にもハッシュ計算を行うためのソルト。
	dummySalt string
}

// NewService はServiceを生成する。
func NewService(
	repo repository.AccountRepository,
	hasher *security.PasswordHasher,
	codec *token.Codec,
	sanitizer *security.ProfileSanitizer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) (*Service, error) {
	if collector == nil {
		collector = metrics.Nop{}
	}
	dummySalt, err := security.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy salt: %w", err)
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		codec:     codec,
		sanitizer: sanitizer,
		metrics:   collector,
		config:    config,
		now:       time.Now,
		dummySalt: dummySalt,
	}, nil
}

// SignUp は新しいアカウントを作成し、トークンを発行する。
// 入力検証はストレージに触れる前に行う。
func (s *Service) SignUp(ctx context.Context, input SignupInput) (result *Result, err error) {
	defer func() { s.recordAttempt(metrics.OperationSignup, err) }()

	email := NormalizeEmail(input.Email)
	displayName := s.sanitizer.SanitizeDisplayName(strings.TrimSpace(input.DisplayName))
	if err := validateSignup(email, input.Password, displayName); err != nil {
		return nil, err
	}

	if s.config.Secret == "" {
		return nil, model.NewMisconfiguredError()
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	salt, err := security.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hashPassword(input.Password, salt)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		Avatar:       "",
		PasswordSalt: salt,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		// 事前確認と作成の間に同じメールアドレスで登録された場合
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	tok, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	slog.Info("account created", slog.String("account_id", account.ID))
	return &Result{Token: tok, Account: account}, nil
}

// SignIn はメールアドレスとパスワードを照合し、トークンを発行する。
// 失敗理由（形式不正・未登録・パスワード不一致）に関わらず同一の INVALID_CREDENTIALS を返す。
func (s *Service) SignIn(ctx context.Context, input SigninInput) (result *Result, err error) {
	defer func() { s.recordAttempt(metrics.OperationSignin, err) }()

	email := NormalizeEmail(input.Email)
	if !ValidEmail(email) || input.Password == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	if s.config.Secret == "" {
		return nil, model.NewMisconfiguredError()
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	if account == nil {
		// 応答時間からメールアドレスの登録有無を推測されないよう、同じコストのハッシュ計算を行う
		if _, err := s.hashPassword(input.Password, s.dummySalt); err != nil {
			return nil, err
		}
		return nil, model.NewInvalidCredentialsError()
	}

	computed, err := s.hashPassword(input.Password, account.PasswordSalt)
	if err != nil {
		return nil, err
	}
	if !security.ConstantTimeEqual(computed, account.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}

	tok, err := s.issue(account)
	if err != nil {
		return nil, err
	}

	slog.Info("account signed in", slog.String("account_id", account.ID))
	return &Result{Token: tok, Account: account}, nil
}

// CurrentAccount は認証済みIDのアカウントを返す。
// IDが不正な形式の場合やアカウントが削除済みの場合も UNAUTHORIZED を返す。
func (s *Service) CurrentAccount(ctx context.Context, identity *model.Identity) (*model.Account, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError()
	}
	if _, err := uuid.Parse(identity.AccountID); err != nil {
		return nil, model.NewUnauthorizedError()
	}

	account, err := s.repo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewUnauthorizedError()
	}
	return account, nil
}

// TokenTTL はトークンの有効期間を返す。
func (s *Service) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

func (s *Service) issue(account *model.Account) (string, error) {
	tok, err := s.codec.Issue(s.config.Secret, token.Subject{ID: account.ID, Email: account.Email}, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok, nil
}

func (s *Service) hashPassword(password, salt string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(password, salt)
	s.metrics.RecordPasswordHash(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// recordAttempt はエラーのカテゴリから試行結果を判定して記録する。
func (s *Service) recordAttempt(operation string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Category {
			case model.CategoryValidation:
				outcome = metrics.OutcomeInvalidInput
			case model.CategoryConflict:
				outcome = metrics.OutcomeConflict
			case model.CategoryAuth:
				outcome = metrics.OutcomeInvalidCredentials
			}
		}
	}
	s.metrics.RecordAuthAttempt(operation, outcome)
}
