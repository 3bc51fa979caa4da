package service

import (
	"context"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
	subs  *repository.SubscriptionRepository
}

func NewUserService(users *repository.UserRepository, subs *repository.SubscriptionRepository) *UserService {
	return &UserService{users: users, subs: subs}
}

func (s *UserService) Ensure(ctx context.Context, telegramID int64, username string) error {
	if err := s.users.Ensure(ctx, telegramID, username); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *UserService) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListTelegramIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	return ids, nil
}

// Profile returns the stored user record, or nil when the user has never
// talked to the bot.
func (s *UserService) Profile(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.users.Get(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ActiveSubscriptions returns the user's active rows across all plans.
func (s *UserService) ActiveSubscriptions(ctx context.Context, telegramID int64) ([]models.Subscription, error) {
	return s.subs.ListActiveForUser(ctx, telegramID)
}

// SubscriptionFor returns the active row for one plan, or nil.
func (s *UserService) SubscriptionFor(ctx context.Context, telegramID, planID int64) (*models.Subscription, error) {
	return s.subs.FindActive(ctx, telegramID, planID)
}
