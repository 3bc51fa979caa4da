package service

import (
	"context"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/config"
	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/repository"
)

type PlanService struct {
	cfg  config.Config
	repo *repository.PlanRepository
}

type CreatePlanInput struct {
	Title           string
	Description     string
	Currency        string
	PriceMinorUnits int
	GroupID         *int64
	IsActive        *bool
}

type UpdatePlanInput struct {
	Title           *string
	Description     *string
	Currency        *string
	PriceMinorUnits *int
	GroupID         *int64
	IsActive        *bool
}

func NewPlanService(cfg config.Config, repo *repository.PlanRepository) *PlanService {
	return &PlanService{cfg: cfg, repo: repo}
}

// ListActive returns the plans shown in the catalog.
func (s *PlanService) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.repo.List(ctx, true)
}

func (s *PlanService) List(ctx context.Context) ([]models.Plan, error) {
	return s.repo.List(ctx, false)
}

func (s *PlanService) GetByID(ctx context.Context, id int64) (*models.Plan, error) {
	return s.repo.GetByID(ctx, id)
}

// GetActive returns the plan only if it is still purchasable.
func (s *PlanService) GetActive(ctx context.Context, id int64) (*models.Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *PlanService) Create(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.Currency == "" {
		input.Currency = s.cfg.PaymentCurrency
	}
	if input.PriceMinorUnits <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	plan := models.Plan{
		Title:           input.Title,
		Description:     input.Description,
		Currency:        input.Currency,
		PriceMinorUnits: input.PriceMinorUnits,
		GroupID:         input.GroupID,
		IsActive:        isActive,
	}
	return s.repo.Create(ctx, &plan)
}

func (s *PlanService) Update(ctx context.Context, id int64, input UpdatePlanInput) (*models.Plan, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrPlanNotFound
	}
	if input.Title != nil {
		existing.Title = *input.Title
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.Currency != nil && *input.Currency != "" {
		existing.Currency = *input.Currency
	}
	if input.PriceMinorUnits != nil && *input.PriceMinorUnits > 0 {
		existing.PriceMinorUnits = *input.PriceMinorUnits
	}
	if input.GroupID != nil {
		existing.GroupID = input.GroupID
	}
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	return s.repo.Update(ctx, existing)
}

func (s *PlanService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *PlanService) ListMedia(ctx context.Context, planID int64) ([]models.PlanMedia, error) {
	return s.repo.ListMedia(ctx, planID)
}

func (s *PlanService) AddMedia(ctx context.Context, media *models.PlanMedia) error {
	if media.FileID == "" {
		return fmt.Errorf("file id is required")
	}
	if media.MediaType != "photo" && media.MediaType != "video" {
		return fmt.Errorf("unsupported media type: %s", media.MediaType)
	}
	return s.repo.AddMedia(ctx, media)
}
