package models

import "time"

// PaymentType describes which slice of the month a payment covers.
type PaymentType string

const (
	PaymentFull           PaymentType = "full"
	PaymentFullAnytime    PaymentType = "full_anytime"
	PaymentPartial        PaymentType = "partial"
	PaymentSecondPart     PaymentType = "second_part"
	PaymentSecondPartLate PaymentType = "second_part_late"
	PaymentHalfMonth      PaymentType = "half_month"
	PaymentRenewal        PaymentType = "renewal"
)

// Valid reports whether t is one of the known payment types.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentFull, PaymentFullAnytime, PaymentPartial, PaymentSecondPart,
		PaymentSecondPartLate, PaymentHalfMonth, PaymentRenewal:
		return true
	}
	return false
}

// PartPaid tracks how much of the current period has been covered.
type PartPaid string

const (
	PartPaidNone  PartPaid = "none"
	PartPaidFirst PartPaid = "first"
	PartPaidFull  PartPaid = "full"
)

type Group struct {
	ChatID    int64
	Title     string
	Type      string
	IsDefault bool
	AddedAt   time.Time
}

type Plan struct {
	ID              int64
	Title           string
	Description     string
	Currency        string
	PriceMinorUnits int
	GroupID         *int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PlanMedia struct {
	ID        int64
	PlanID    int64
	FileID    string
	MediaType string
	Ord       int
}

type User struct {
	TelegramID int64
	Username   string
	JoinedAt   time.Time
}

// Subscription is the authoritative entitlement record for one (user, plan)
// pair. At most one row per pair carries Active=true.
type Subscription struct {
	ID          int64
	UserID      int64
	PlanID      int64
	GroupID     int64
	StartTs     time.Time
	EndTs       time.Time
	PaymentType PaymentType
	PeriodMonth int
	PeriodYear  int
	PartPaid    PartPaid
	InviteLink  string
	Active      bool
	Removed     bool
}

// CoversPeriod reports whether the row is credited for the given period.
func (s *Subscription) CoversPeriod(month, year int) bool {
	return s.PeriodMonth == month && s.PeriodYear == year
}

type PromoCode struct {
	ID              int64
	Code            string
	DiscountPercent int
	DiscountFixed   int
	IsActive        bool
	UsedCount       int
	MaxUses         *int
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

type PromoUsage struct {
	ID      int64
	PromoID int64
	UserID  int64
	UsedAt  time.Time
}

// Invoice is the pending-payment record keyed by the opaque invoice payload.
// It lives only until the payment-completed event arrives or the checkout is
// abandoned.
type Invoice struct {
	Payload          string
	UserID           int64
	PlanID           int64
	AmountMinorUnits int
	PaymentType      PaymentType
	PeriodMonth      int
	PeriodYear       int
	PromoID          *int64
	RenewalEndTs     *time.Time
	CreatedAt        time.Time
}

type ManualPaymentStatus string

const (
	ManualPending  ManualPaymentStatus = "pending"
	ManualApproved ManualPaymentStatus = "approved"
	ManualRejected ManualPaymentStatus = "rejected"
)

type ManualPayment struct {
	ID               int64
	UserID           int64
	PlanID           int64
	AmountMinorUnits int
	PaymentType      PaymentType
	PeriodMonth      int
	PeriodYear       int
	PromoID          *int64
	ReceiptFileID    string
	ReceiptURL       string
	FullName         string
	Status           ManualPaymentStatus
	AdminID          *int64
	CreatedAt        time.Time
	ReviewedAt       *time.Time
}

type PaymentMethod struct {
	ID          int64
	Name        string
	Type        string
	IsActive    bool
	Description string
	Details     string
}
