package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

type fakeManualStore struct {
	payments map[int64]*models.ManualPayment
	nextID   int64
}

func newFakeManualStore() *fakeManualStore {
	return &fakeManualStore{payments: map[int64]*models.ManualPayment{}, nextID: 1}
}

func (s *fakeManualStore) Create(_ context.Context, mp *models.ManualPayment) (*models.ManualPayment, error) {
	stored := *mp
	stored.ID = s.nextID
	s.nextID++
	s.payments[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (s *fakeManualStore) GetByID(_ context.Context, id int64) (*models.ManualPayment, error) {
	mp, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *mp
	return &copied, nil
}

func (s *fakeManualStore) ListPending(_ context.Context) ([]models.ManualPayment, error) {
	var list []models.ManualPayment
	for _, mp := range s.payments {
		if mp.Status == models.ManualPending {
			list = append(list, *mp)
		}
	}
	return list, nil
}

func (s *fakeManualStore) MarkReviewed(_ context.Context, id, adminID int64, status models.ManualPaymentStatus, reviewedAt time.Time) error {
	mp, ok := s.payments[id]
	if !ok || mp.Status != models.ManualPending {
		return errAlreadyReviewed
	}
	mp.Status = status
	mp.AdminID = &adminID
	mp.ReviewedAt = &reviewedAt
	return nil
}

func (s *fakeManualStore) Reopen(_ context.Context, id int64) error {
	mp, ok := s.payments[id]
	if !ok || mp.Status != models.ManualApproved {
		return nil
	}
	mp.Status = models.ManualPending
	mp.AdminID = nil
	mp.ReviewedAt = nil
	return nil
}

func (s *fakeManualStore) SetReceiptURL(_ context.Context, id int64, url string) error {
	if mp, ok := s.payments[id]; ok {
		mp.ReceiptURL = url
	}
	return nil
}

type fakeActivator struct {
	failures int
	calls    int
}

func (a *fakeActivator) Activate(_ context.Context, _, _ int64, _ models.PaymentType, _ *time.Time) (*ActivationResult, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, ErrInviteIssuance
	}
	return &ActivationResult{InviteLink: "https://t.me/+invite"}, nil
}

type fakeRedeemer struct {
	redeemed []int64
}

func (r *fakeRedeemer) Redeem(_ context.Context, promoID, _ int64) error {
	r.redeemed = append(r.redeemed, promoID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManualService(store *fakeManualStore, act *fakeActivator, red *fakeRedeemer) *ManualPaymentService {
	svc := NewManualPaymentService(store, red, act, nil, nil, discardLogger())
	svc.now = func() time.Time {
		return time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func submitPayment(t *testing.T, svc *ManualPaymentService, promo *models.PromoCode) *models.ManualPayment {
	t.Helper()
	created, err := svc.Submit(context.Background(), SubmitManualInput{
		UserID:      777,
		Plan:        &models.Plan{ID: 42, PriceMinorUnits: 10000},
		Option:      PaymentOption{Type: models.PaymentFull, Price: 10000},
		Promo:       promo,
		ReceiptFile: "file-abc",
		FullName:    "Иван Иванов",
	})
	require.NoError(t, err)
	return created
}

func TestSubmitRecordsCurrentPeriod(t *testing.T) {
	store := newFakeManualStore()
	svc := newManualService(store, &fakeActivator{}, &fakeRedeemer{})

	created := submitPayment(t, svc, nil)

	require.Equal(t, 3, created.PeriodMonth)
	require.Equal(t, 2025, created.PeriodYear)
	require.Equal(t, models.ManualPending, created.Status)
}

func TestApproveFailedActivationLeavesPaymentReviewable(t *testing.T) {
	store := newFakeManualStore()
	act := &fakeActivator{failures: 1}
	svc := newManualService(store, act, &fakeRedeemer{})
	created := submitPayment(t, svc, nil)

	_, err := svc.Approve(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, ErrInviteIssuance)

	// The approval claim must be rolled back so a later review can succeed.
	stored, err := store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ManualPending, stored.Status)
	require.Nil(t, stored.AdminID)

	result, err := svc.Approve(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "https://t.me/+invite", result.InviteLink)

	stored, err = store.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ManualApproved, stored.Status)
}

func TestApproveRedeemsPromoAfterActivation(t *testing.T) {
	store := newFakeManualStore()
	act := &fakeActivator{failures: 1}
	red := &fakeRedeemer{}
	svc := newManualService(store, act, red)
	promo := &models.PromoCode{ID: 9, Code: "SPRING", DiscountPercent: 10, IsActive: true}
	created := submitPayment(t, svc, promo)

	_, err := svc.Approve(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, ErrInviteIssuance)
	require.Empty(t, red.redeemed, "redemption must wait for a granted activation")

	_, err = svc.Approve(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{9}, red.redeemed)
}

func TestApproveRejectsSecondReview(t *testing.T) {
	store := newFakeManualStore()
	svc := newManualService(store, &fakeActivator{}, &fakeRedeemer{})
	created := submitPayment(t, svc, nil)

	_, err := svc.Approve(context.Background(), created.ID, 1)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created.ID, 2)
	require.ErrorIs(t, err, errAlreadyReviewed)
}
