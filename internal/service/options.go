package service

import (
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/period"
)

// PaymentOption is one purchasable action at the current moment.
type PaymentOption struct {
	Type        models.PaymentType
	Price       int
	Title       string
	Description string
}

// SplitPrice returns the half-month price. Integer division: on odd prices the
// two halves sum to one minor unit less than the full price. This matches the
// published pricing and is intentional.
func SplitPrice(price int) int {
	return price / 2
}

// ResolveOptions computes the purchasable actions for a plan given the
// authoritative subscription state and the current moment. sub may be nil.
//
// Once the current period is fully paid the result is empty regardless of
// phase; the caller uses that as the "already covered" signal.
func ResolveOptions(sub *models.Subscription, now time.Time, price int) []PaymentOption {
	cur := period.Current(now)
	half := SplitPrice(price)

	var part models.PartPaid = models.PartPaidNone
	if sub != nil && sub.Active && sub.CoversPeriod(cur.Month, cur.Year) {
		part = sub.PartPaid
	}

	if part == models.PartPaidFull {
		return nil
	}
	paidFirst := part == models.PartPaidFirst

	switch period.PhaseOf(now) {
	case period.PhaseFirstWindow:
		if paidFirst {
			return []PaymentOption{secondPartOption(models.PaymentSecondPart, half)}
		}
		return []PaymentOption{
			{
				Type:        models.PaymentFull,
				Price:       price,
				Title:       "Полная оплата",
				Description: "Доступ до 5 числа следующего месяца",
			},
			{
				Type:        models.PaymentPartial,
				Price:       half,
				Title:       "Оплатить первой частью",
				Description: "Вторая часть оплачивается 15-20 числа",
			},
		}

	case period.PhaseGap:
		if paidFirst {
			return []PaymentOption{secondPartOption(models.PaymentSecondPartLate, half)}
		}
		return []PaymentOption{fullOption(price)}

	case period.PhaseSecondWindow:
		if paidFirst {
			return []PaymentOption{secondPartOption(models.PaymentSecondPart, half)}
		}
		return []PaymentOption{fullOption(price)}

	default: // period.PhaseLate
		if paidFirst {
			return []PaymentOption{secondPartOption(models.PaymentSecondPartLate, half)}
		}
		return []PaymentOption{
			{
				Type:        models.PaymentHalfMonth,
				Price:       half,
				Title:       "Оплатить половину месяца",
				Description: "Доступ до 5 числа следующего месяца",
			},
		}
	}
}

func fullOption(price int) PaymentOption {
	return PaymentOption{
		Type:        models.PaymentFull,
		Price:       price,
		Title:       "Полная оплата",
		Description: "Доступ до 5 числа следующего месяца",
	}
}

func secondPartOption(t models.PaymentType, half int) PaymentOption {
	desc := "Доступ до 5 числа следующего месяца"
	if t == models.PaymentSecondPartLate {
		desc = "Доступ до 5 числа следующего месяца (восстановление доступа)"
	}
	return PaymentOption{
		Type:        t,
		Price:       half,
		Title:       "Доплатить вторую часть",
		Description: desc,
	}
}
