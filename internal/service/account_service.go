package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/repository"
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Remove(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	ar repository.SocialAccountRepository
}

func NewAccountService(ar repository.SocialAccountRepository) AccountService {
	return &accountService{ar: ar}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return s.ar.ListByUserID(ctx, userID)
}

func (s *accountService) Remove(ctx context.Context, userID, accountID int64) error {
	account, err := s.ar.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.UserID != userID {
		err := errors.New("social account not found")
		slog.Info(err.Error())
		return err
	}
	return s.ar.Remove(ctx, userID, accountID)
}
