package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daily_horoscope_bot/internal/domain/horoscope"
	"daily_horoscope_bot/internal/domain/subscriber"
	domainTelegram "daily_horoscope_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// A subscriber is due when local time is within this many seconds of
	// their preferred delivery time, on either side. The full band absorbs
	// tick jitter of up to a minute; do not narrow this to exact-minute
	// equality.
	windowSeconds = 60

	isoDateLayout = "2006-01-02"
)

// tickOutcome classifies one subscriber's evaluation within a tick.
type tickOutcome int

const (
	outcomeSkipped tickOutcome = iota // inactive, satisfied, or not due
	outcomeSent
	outcomeFailed
)

// TickReport aggregates per-subscriber outcomes of one tick for logging.
type TickReport struct {
	Evaluated int
	Sent      int
	Skipped   int
	Failed    int
}

// DispatchService runs the minute tick: it scans dispatchable subscribers,
// applies the delivery-window test and the once-per-local-day delivery
// guard, resolves content and sends it. Per-subscriber failures are isolated
// and never abort the rest of the tick.
type DispatchService struct {
	subRepo     subscriber.Repository
	content     *ContentService
	telegram    domainTelegram.Client
	logger      *logrus.Entry
	workers     int
	tickTimeout time.Duration

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func NewDispatchService(
	subRepo subscriber.Repository,
	content *ContentService,
	telegramClient domainTelegram.Client,
	logger *logrus.Entry,
	workers int,
	tickTimeout time.Duration,
) *DispatchService {
	if workers < 1 {
		workers = 1
	}
	if tickTimeout <= 0 {
		tickTimeout = 50 * time.Second
	}
	return &DispatchService{
		subRepo:     subRepo,
		content:     content,
		telegram:    telegramClient,
		logger:      logger,
		workers:     workers,
		tickTimeout: tickTimeout,
		now:         time.Now,
	}
}

// RunTick evaluates every dispatchable subscriber once. At most one tick may
// execute at a time; the scheduler driver's coalescing policy guarantees
// this, and the per-subscriber delivery guard is the correctness backstop.
func (s *DispatchService) RunTick(ctx context.Context) TickReport {
	started := s.now()
	nowUTC := started.UTC()

	subs, err := s.subRepo.ListDispatchable(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Tick aborted: could not list dispatchable subscribers")
		return TickReport{}
	}

	// Soft budget well under the tick period; subscribers not reached in
	// time stay eligible on the next tick while still within their window.
	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	var mu sync.Mutex
	report := TickReport{Evaluated: len(subs)}

	g, gctx := errgroup.WithContext(tickCtx)
	g.SetLimit(s.workers)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			outcome := s.evaluateSubscriber(gctx, sub, nowUTC)
			mu.Lock()
			switch outcome {
			case outcomeSent:
				report.Sent++
			case outcomeFailed:
				report.Failed++
			default:
				report.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(logrus.Fields{
		"evaluated": report.Evaluated,
		"sent":      report.Sent,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"took_ms":   s.now().Sub(started).Milliseconds(),
	}).Info("Tick completed")
	return report
}

// evaluateSubscriber runs the per-subscriber state machine. It never panics
// out: an escaping panic is caught here so one bad record cannot take down
// the tick.
func (s *DispatchService) evaluateSubscriber(ctx context.Context, sub *subscriber.Subscriber, nowUTC time.Time) (outcome tickOutcome) {
	logCtx := s.logger.WithFields(logrus.Fields{
		"subscriber_id": sub.ID,
		"telegram_id":   sub.TelegramID,
	})
	defer func() {
		if r := recover(); r != nil {
			logCtx.Errorf("Panic during subscriber evaluation: %v", r)
			outcome = outcomeFailed
		}
	}()

	if ctx.Err() != nil {
		// Tick budget exhausted; this subscriber is evaluated next tick.
		return outcomeSkipped
	}
	if !sub.IsActive || !sub.HasSign() {
		return outcomeSkipped
	}

	localNow := nowUTC.In(s.resolveLocation(sub, logCtx))
	localDate := localNow.Format(isoDateLayout)

	if s.isSatisfied(sub, localDate) {
		return outcomeSkipped
	}
	if !due(localNow, sub.Hour, sub.Minute) {
		return outcomeSkipped
	}

	sign, ok := horoscope.ParseSign(sub.Sign)
	if !ok {
		logCtx.WithField("sign", sub.Sign).Warn("Subscriber has unknown sign label, skipping")
		return outcomeSkipped
	}

	res := s.content.ResolveDaily(ctx, sign, localDate)
	logCtx = logCtx.WithFields(logrus.Fields{
		"date":       localDate,
		"provenance": string(res.Provenance),
	})

	if err := s.telegram.SendMessage(ctx, sub.TelegramID, res.Text, nil); err != nil {
		// Best-effort: satisfaction stays unset, so the subscriber remains
		// eligible on the next tick while still inside the window.
		logCtx.WithError(err).Warn("Send failed, delivery guard not advanced")
		return outcomeFailed
	}

	if err := s.markSatisfied(ctx, sub.ID, localDate); err != nil {
		logCtx.WithError(err).Error("Message sent but delivery guard commit failed")
		return outcomeFailed
	}

	logCtx.Info("Daily horoscope delivered")
	return outcomeSent
}

// resolveLocation loads the subscriber's timezone, substituting UTC when the
// identifier is empty or unresolvable. The subscriber is never aborted over
// a bad timezone.
func (s *DispatchService) resolveLocation(sub *subscriber.Subscriber, logCtx *logrus.Entry) *time.Location {
	if sub.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(sub.Timezone)
	if err != nil {
		logCtx.WithField("timezone", sub.Timezone).Debug("Unresolvable timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}

// isSatisfied reports whether the subscriber already received their message
// for the given local calendar date.
func (s *DispatchService) isSatisfied(sub *subscriber.Subscriber, localDate string) bool {
	return sub.LastSentDate.Valid && sub.LastSentDate.Time.Format(isoDateLayout) == localDate
}

// markSatisfied commits the delivery guard after a confirmed send. It must
// be the last mutation for the subscriber within the tick.
func (s *DispatchService) markSatisfied(ctx context.Context, id int64, localDate string) error {
	date, err := time.Parse(isoDateLayout, localDate)
	if err != nil {
		return fmt.Errorf("bad local date %q: %w", localDate, err)
	}
	return s.subRepo.SetLastSentDate(ctx, id, date)
}

// due applies the delivery-window test: the signed delta between local now
// and the preferred time must lie in [-windowSeconds, windowSeconds).
func due(localNow time.Time, hour, minute int) bool {
	target := time.Date(localNow.Year(), localNow.Month(), localNow.Day(),
		hour, minute, 0, 0, localNow.Location())
	delta := localNow.Sub(target).Seconds()
	return delta >= -windowSeconds && delta < windowSeconds
}

// SendNow resolves and sends today's horoscope immediately, for the /today
// command. It does not consult or advance the delivery guard: the scheduled
// daily delivery still happens.
func (s *DispatchService) SendNow(ctx context.Context, sub *subscriber.Subscriber) error {
	if !sub.HasSign() {
		return fmt.Errorf("subscriber %d has no sign assigned", sub.ID)
	}
	sign, ok := horoscope.ParseSign(sub.Sign)
	if !ok {
		return fmt.Errorf("subscriber %d has unknown sign %q", sub.ID, sub.Sign)
	}

	localDate := s.now().UTC().In(s.resolveLocation(sub, s.logger.WithField("subscriber_id", sub.ID))).Format(isoDateLayout)
	res := s.content.ResolveDaily(ctx, sign, localDate)
	if err := s.telegram.SendMessage(ctx, sub.TelegramID, res.Text, nil); err != nil {
		return fmt.Errorf("failed to send on-demand horoscope: %w", err)
	}
	return nil
}
