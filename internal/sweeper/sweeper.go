// Package sweeper runs the scheduled lifecycle actions: payment reminders,
// deadline revocations and the daily expiry pass.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evelansk/grouppassbot/internal/period"
	"github.com/evelansk/grouppassbot/internal/repository"
	"github.com/evelansk/grouppassbot/internal/service"
)

// job is one scheduled action. day == 0 means daily; otherwise the job fires
// on that day of month. Scheduling is watermark-based: on each tick a job runs
// iff a scheduled point has passed since its persisted last run, so restarts
// and downtime cannot skip an action, and a long outage collapses the backlog
// into a single catch-up run.
type job struct {
	name   string
	day    int
	hour   int
	minute int
	run    func(ctx context.Context, now time.Time) error
}

type Sweeper struct {
	subs     *repository.SubscriptionRepository
	runs     *repository.SweepRepository
	payments *service.PaymentService
	revoker  *service.ActivationService
	notifier service.Notifier
	log      *slog.Logger
	loc      *time.Location
	interval time.Duration
	jobs     []job
	now      func() time.Time
}

func New(
	subs *repository.SubscriptionRepository,
	runs *repository.SweepRepository,
	payments *service.PaymentService,
	revoker *service.ActivationService,
	notifier service.Notifier,
	log *slog.Logger,
	loc *time.Location,
	interval time.Duration,
) *Sweeper {
	s := &Sweeper{
		subs:     subs,
		runs:     runs,
		payments: payments,
		revoker:  revoker,
		notifier: notifier,
		log:      log,
		loc:      loc,
		interval: interval,
		now:      time.Now,
	}
	s.jobs = []job{
		{name: "remind_renewal", day: 1, hour: 10, run: s.remindRenewal},
		{name: "remind_deadline_first", day: 4, hour: 18, run: s.remindFirstDeadline},
		{name: "revoke_unpaid", day: 6, hour: 0, run: s.revokeUnpaid},
		{name: "remind_second", day: 15, hour: 10, run: s.remindSecondPart},
		{name: "remind_deadline_second", day: 19, hour: 18, run: s.remindSecondDeadline},
		{name: "revoke_partial", day: 21, hour: 0, run: s.revokePartial},
		{name: "daily_expiry", day: 0, hour: 1, run: s.revokeExpired},
	}
	return s
}

// Run blocks until ctx is cancelled, ticking at the configured interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started", "interval", s.interval, "timezone", s.loc.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	now := s.now().In(s.loc)
	for _, j := range s.jobs {
		if err := s.runIfDue(ctx, j, now); err != nil {
			s.log.Error("sweep action failed", "action", j.name, "error", err)
		}
	}
	if err := s.payments.PurgeStaleInvoices(ctx, 48*time.Hour); err != nil {
		s.log.Warn("invoice purge failed", "error", err)
	}
}

func (s *Sweeper) runIfDue(ctx context.Context, j job, now time.Time) error {
	last, err := s.runs.LastRun(ctx, j.name)
	if err != nil {
		return err
	}
	if last.IsZero() {
		// First boot: start the watermark at now instead of replaying the
		// historical backlog against a fresh database.
		return s.runs.SetLastRun(ctx, j.name, now)
	}

	due := lastDuePoint(now, j.day, j.hour, j.minute)
	if !due.After(last.In(s.loc)) {
		return nil
	}

	s.log.Info("running sweep action", "action", j.name, "scheduled_for", due)
	if err := j.run(ctx, now); err != nil {
		return err
	}
	return s.runs.SetLastRun(ctx, j.name, due)
}

// lastDuePoint returns the most recent scheduled occurrence at or before now.
// day == 0 schedules daily.
func lastDuePoint(now time.Time, day, hour, minute int) time.Time {
	loc := now.Location()
	if day == 0 {
		p := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
		if p.After(now) {
			p = p.AddDate(0, 0, -1)
		}
		return p
	}
	p := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, loc)
	if p.After(now) {
		p = time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, loc).AddDate(0, -1, 0)
	}
	return p
}

// revokeUnpaid removes members whose row is still credited to an old period
// after the first-window deadline.
func (s *Sweeper) revokeUnpaid(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	candidates, err := s.subs.ListUnpaidForPeriod(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	return s.revokeAll(ctx, candidates, "Подписка «%s» не была оплачена до 5 числа, доступ закрыт.")
}

// revokePartial removes members who paid only the first half and missed the
// second-window deadline.
func (s *Sweeper) revokePartial(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	candidates, err := s.subs.ListPartialForPeriod(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	return s.revokeAll(ctx, candidates, "Вторая часть оплаты за «%s» не поступила до 20 числа, доступ закрыт.")
}

// revokeExpired is the safety net: any active row whose end has passed.
func (s *Sweeper) revokeExpired(ctx context.Context, now time.Time) error {
	candidates, err := s.subs.ListExpired(ctx, now)
	if err != nil {
		return err
	}
	return s.revokeAll(ctx, candidates, "Срок подписки «%s» истёк, доступ закрыт.")
}

func (s *Sweeper) revokeAll(ctx context.Context, candidates []repository.RevocationCandidate, textFmt string) error {
	var firstErr error
	for _, c := range candidates {
		if err := s.revoker.Revoke(ctx, c.SubID, c.UserID, c.GroupID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.notify(ctx, c.UserID, fmt.Sprintf(textFmt, c.PlanTitle))
	}
	if len(candidates) > 0 {
		s.log.Info("revocation pass done", "candidates", len(candidates))
	}
	return firstErr
}

func (s *Sweeper) remindRenewal(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	list, err := s.subs.ListStalePeriodActive(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	for _, c := range list {
		s.notify(ctx, c.UserID, fmt.Sprintf(
			"Начался новый месяц! Не забудьте оплатить подписку «%s» до 5 числа.", c.PlanTitle))
	}
	return nil
}

func (s *Sweeper) remindFirstDeadline(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	list, err := s.subs.ListStalePeriodActive(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	for _, c := range list {
		s.notify(ctx, c.UserID, fmt.Sprintf(
			"Завтра последний день оплаты подписки «%s». После 5 числа доступ будет закрыт.", c.PlanTitle))
	}
	return nil
}

func (s *Sweeper) remindSecondPart(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	list, err := s.subs.ListPartialForPeriod(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	for _, c := range list {
		s.notify(ctx, c.UserID, fmt.Sprintf(
			"Пора оплатить вторую часть подписки «%s» (до 20 числа).", c.PlanTitle))
	}
	return nil
}

func (s *Sweeper) remindSecondDeadline(ctx context.Context, now time.Time) error {
	cur := period.Current(now)
	list, err := s.subs.ListPartialForPeriod(ctx, cur.Month, cur.Year)
	if err != nil {
		return err
	}
	for _, c := range list {
		s.notify(ctx, c.UserID, fmt.Sprintf(
			"Завтра последний день доплаты за «%s». После 20 числа доступ будет закрыт.", c.PlanTitle))
	}
	return nil
}

func (s *Sweeper) notify(ctx context.Context, userID int64, text string) {
	if err := s.notifier.Notify(ctx, userID, text); err != nil {
		s.log.Warn("reminder delivery failed", "user_id", userID, "error", err)
	}
}
