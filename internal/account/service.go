// Package account はアカウントプロフィールの参照と更新を提供する。
// アカウントは自分自身のみ参照・更新できる。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/duniaauth/internal/auth"
	"github.com/hitoshi/duniaauth/internal/model"
	"github.com/hitoshi/duniaauth/internal/repository"
	"github.com/hitoshi/duniaauth/internal/security"
)

// UpdateInput はプロフィール更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	DisplayName *string
	Avatar      *string
	Email       *string
}

// Service はアカウントに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.AccountRepository
	sanitizer *security.ProfileSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.AccountRepository, sanitizer *security.ProfileSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Get は指定IDのアカウントを返す。actorIDと異なるIDは存在有無に関わらず FORBIDDEN を返す。
func (s *Service) Get(ctx context.Context, actorID, id string) (*model.Account, error) {
	if err := authorize(actorID, id); err != nil {
		return nil, err
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// Update はプロフィールを部分更新し、更新後のアカウントを返す。
// 表示名はtrimとタグ除去を行い、空になる場合は MISSING_DISPLAY_NAME を返す。
// メールアドレスは正規化し、他のアカウントが使用中の場合は EMAIL_TAKEN を返す。
func (s *Service) Update(ctx context.Context, actorID, id string, input UpdateInput) (*model.Account, error) {
	if err := authorize(actorID, id); err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(input)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		taken, err := s.repo.EmailTakenByOther(ctx, *patch.Email, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check email usage: %w", err)
		}
		if taken {
			return nil, model.NewEmailInUseError()
		}
	}

	account, err := s.repo.Update(ctx, id, patch, s.now())
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		return nil, model.NewAccountNotFoundError()
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, model.NewEmailInUseError()
	case err != nil:
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	slog.Info("account updated", slog.String("account_id", id))
	return account, nil
}

func (s *Service) buildPatch(input UpdateInput) (model.AccountPatch, error) {
	var patch model.AccountPatch

	if input.DisplayName != nil {
		name := s.sanitizer.SanitizeDisplayName(strings.TrimSpace(*input.DisplayName))
		if name == "" {
			return patch, model.NewMissingDisplayNameError()
		}
		patch.DisplayName = &name
	}
	if input.Avatar != nil {
		avatar := *input.Avatar
		patch.Avatar = &avatar
	}
	if input.Email != nil {
		email := auth.NormalizeEmail(*input.Email)
		if !auth.ValidEmail(email) {
			return patch, model.NewInvalidEmailError()
		}
		patch.Email = &email
	}

	return patch, nil
}

// authorize は自分自身へのアクセスのみを許可する。
// 本人確認の後、UUIDとして解釈できないIDは NOT_FOUND とする。
func authorize(actorID, id string) error {
	if actorID == "" || id != actorID {
		return model.NewForbiddenError()
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NewAccountNotFoundError()
	}
	return nil
}
