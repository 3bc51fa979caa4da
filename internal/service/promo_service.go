package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/repository"
)

type PromoService struct {
	promos *repository.PromoRepository
	now    func() time.Time
}

func NewPromoService(promos *repository.PromoRepository) *PromoService {
	return &PromoService{promos: promos, now: time.Now}
}

// CheckPromo validates a looked-up promo against a user's prior usage. The
// checks run in a fixed order: already-used, inactive, exhausted, expired.
// A nil promo means the code does not exist.
func CheckPromo(promo *models.PromoCode, alreadyUsed bool, now time.Time) error {
	if promo == nil {
		return ErrPromoNotFound
	}
	if alreadyUsed {
		return ErrPromoAlreadyUsed
	}
	if !promo.IsActive {
		return ErrPromoInactive
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return ErrPromoExhausted
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return ErrPromoExpired
	}
	return nil
}

// ApplyDiscount returns the discounted price, clamped to [0, price]. Percent
// discounts floor; a code carries either a percent or a fixed amount.
func ApplyDiscount(price int, promo *models.PromoCode) int {
	if promo == nil {
		return price
	}
	var discount int
	if promo.DiscountPercent > 0 {
		discount = price * promo.DiscountPercent / 100
	} else {
		discount = promo.DiscountFixed
	}
	if discount < 0 {
		discount = 0
	}
	if discount > price {
		discount = price
	}
	return price - discount
}

// Validate resolves a code for a user. Validation does not consume the code:
// usage is recorded only when a payment completes, so an abandoned checkout
// never burns a redemption.
func (s *PromoService) Validate(ctx context.Context, code string, userID int64) (*models.PromoCode, error) {
	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}
	used, err := s.promos.HasUserRedeemed(ctx, promo.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check redemption: %w", err)
	}
	if err := CheckPromo(promo, used, s.now()); err != nil {
		return nil, err
	}
	return promo, nil
}

// Redeem records the usage for a confirmed payment.
func (s *PromoService) Redeem(ctx context.Context, promoID, userID int64) error {
	return s.promos.RecordRedemption(ctx, promoID, userID, s.now())
}

func (s *PromoService) GetByID(ctx context.Context, id int64) (*models.PromoCode, error) {
	return s.promos.GetByID(ctx, id)
}

func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.promos.List(ctx)
}

type CreatePromoInput struct {
	Code            string
	DiscountPercent int
	DiscountFixed   int
	MaxUses         *int
	ExpiresAt       *time.Time
}

func (s *PromoService) Create(ctx context.Context, input CreatePromoInput) (*models.PromoCode, error) {
	if (input.DiscountPercent > 0) == (input.DiscountFixed > 0) {
		return nil, fmt.Errorf("promo must carry either a percent or a fixed discount")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return nil, fmt.Errorf("percent discount out of range")
	}
	if input.DiscountFixed < 0 {
		return nil, fmt.Errorf("fixed discount out of range")
	}
	code := input.Code
	if code == "" {
		generated, err := s.generateCode(ctx, 8)
		if err != nil {
			return nil, err
		}
		code = generated
	}
	promo := &models.PromoCode{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		DiscountFixed:   input.DiscountFixed,
		IsActive:        true,
		MaxUses:         input.MaxUses,
		ExpiresAt:       input.ExpiresAt,
	}
	return s.promos.Create(ctx, promo)
}

func (s *PromoService) SetActive(ctx context.Context, id int64, active bool) error {
	return s.promos.SetActive(ctx, id, active)
}

func (s *PromoService) Delete(ctx context.Context, id int64) error {
	return s.promos.Delete(ctx, id)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (s *PromoService) generateCode(ctx context.Context, length int) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, length)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generate promo code: %w", err)
			}
			buf[i] = codeAlphabet[n.Int64()]
		}
		code := string(buf)
		existing, err := s.promos.GetByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique promo code")
}
