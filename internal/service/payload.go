package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evelansk/grouppassbot/internal/models"
)

const payloadVersion = "v1"

// PaymentPayload is the structured content of the opaque invoice token that
// comes back with the payment-completed event. The encoding is versioned and
// parsed strictly: anything that does not match the v1 layout is rejected.
type PaymentPayload struct {
	PlanID      int64
	UserID      int64
	PaymentType models.PaymentType
	PeriodMonth int
	PeriodYear  int
	PromoID     int64 // 0 when no promo was applied
	RenewalEnd  int64 // unix seconds; 0 unless PaymentType is renewal
	Nonce       string
}

// NewPaymentPayload builds a payload for a fresh checkout.
func NewPaymentPayload(planID, userID int64, pt models.PaymentType, month, year int, promoID int64) PaymentPayload {
	return PaymentPayload{
		PlanID:      planID,
		UserID:      userID,
		PaymentType: pt,
		PeriodMonth: month,
		PeriodYear:  year,
		PromoID:     promoID,
		Nonce:       uuid.NewString(),
	}
}

// Encode renders the v1 wire form:
// v1:plan:<id>:user:<id>:type:<t>:month:<m>:year:<y>:promo:<id>:end:<unix>:<nonce>
func (p PaymentPayload) Encode() string {
	return strings.Join([]string{
		payloadVersion,
		"plan", strconv.FormatInt(p.PlanID, 10),
		"user", strconv.FormatInt(p.UserID, 10),
		"type", string(p.PaymentType),
		"month", strconv.Itoa(p.PeriodMonth),
		"year", strconv.Itoa(p.PeriodYear),
		"promo", strconv.FormatInt(p.PromoID, 10),
		"end", strconv.FormatInt(p.RenewalEnd, 10),
		p.Nonce,
	}, ":")
}

// ParsePaymentPayload decodes and validates a wire token. Every failure mode
// maps to ErrMalformedPayload so callers can treat the token as hostile input.
func ParsePaymentPayload(raw string) (PaymentPayload, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 16 {
		return PaymentPayload{}, fmt.Errorf("%w: expected 16 segments, got %d", ErrMalformedPayload, len(parts))
	}
	if parts[0] != payloadVersion {
		return PaymentPayload{}, fmt.Errorf("%w: unknown version %q", ErrMalformedPayload, parts[0])
	}

	labels := []struct {
		idx  int
		want string
	}{
		{1, "plan"}, {3, "user"}, {5, "type"}, {7, "month"}, {9, "year"}, {11, "promo"}, {13, "end"},
	}
	for _, l := range labels {
		if parts[l.idx] != l.want {
			return PaymentPayload{}, fmt.Errorf("%w: expected label %q at segment %d", ErrMalformedPayload, l.want, l.idx)
		}
	}

	planID, err := parsePayloadInt(parts[2])
	if err != nil || planID <= 0 {
		return PaymentPayload{}, fmt.Errorf("%w: bad plan id %q", ErrMalformedPayload, parts[2])
	}
	userID, err := parsePayloadInt(parts[4])
	if err != nil || userID <= 0 {
		return PaymentPayload{}, fmt.Errorf("%w: bad user id %q", ErrMalformedPayload, parts[4])
	}
	pt := models.PaymentType(parts[6])
	if !pt.Valid() {
		return PaymentPayload{}, fmt.Errorf("%w: unknown payment type %q", ErrMalformedPayload, parts[6])
	}
	month, err := parsePayloadInt(parts[8])
	if err != nil || month < 1 || month > 12 {
		return PaymentPayload{}, fmt.Errorf("%w: bad month %q", ErrMalformedPayload, parts[8])
	}
	year, err := parsePayloadInt(parts[10])
	if err != nil || year < 2020 || year > 2200 {
		return PaymentPayload{}, fmt.Errorf("%w: bad year %q", ErrMalformedPayload, parts[10])
	}
	promoID, err := parsePayloadInt(parts[12])
	if err != nil || promoID < 0 {
		return PaymentPayload{}, fmt.Errorf("%w: bad promo id %q", ErrMalformedPayload, parts[12])
	}
	renewalEnd, err := parsePayloadInt(parts[14])
	if err != nil || renewalEnd < 0 {
		return PaymentPayload{}, fmt.Errorf("%w: bad renewal end %q", ErrMalformedPayload, parts[14])
	}
	if parts[15] == "" {
		return PaymentPayload{}, fmt.Errorf("%w: empty nonce", ErrMalformedPayload)
	}

	return PaymentPayload{
		PlanID:      planID,
		UserID:      userID,
		PaymentType: pt,
		PeriodMonth: int(month),
		PeriodYear:  int(year),
		PromoID:     promoID,
		RenewalEnd:  renewalEnd,
		Nonce:       parts[15],
	}, nil
}

// RenewalAnchor returns the anchor time carried by a renewal payload, or nil.
func (p PaymentPayload) RenewalAnchor() *time.Time {
	if p.RenewalEnd == 0 {
		return nil
	}
	t := time.Unix(p.RenewalEnd, 0)
	return &t
}

func parsePayloadInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
