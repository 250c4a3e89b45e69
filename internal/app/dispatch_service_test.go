package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"daily_horoscope_bot/internal/domain/horoscope"
	"daily_horoscope_bot/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeSubscriberRepo struct {
	mu       sync.Mutex
	subs     []*subscriber.Subscriber
	lastSent map[int64]time.Time
	setErr   error
	listErr  error
}

func newFakeSubscriberRepo(subs ...*subscriber.Subscriber) *fakeSubscriberRepo {
	return &fakeSubscriberRepo{subs: subs, lastSent: make(map[int64]time.Time)}
}

func (f *fakeSubscriberRepo) ListDispatchable(ctx context.Context) ([]*subscriber.Subscriber, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeSubscriberRepo) SetLastSentDate(ctx context.Context, id int64, date time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSent[id] = date
	return nil
}

func (f *fakeSubscriberRepo) Create(ctx context.Context, sub *subscriber.Subscriber) error {
	return errors.New("not implemented")
}

func (f *fakeSubscriberRepo) GetByID(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSubscriberRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSubscriberRepo) Update(ctx context.Context, sub *subscriber.Subscriber) error {
	return errors.New("not implemented")
}

func (f *fakeSubscriberRepo) ListActive(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSubscriberRepo) Stats(ctx context.Context) (*subscriber.Stats, error) {
	return nil, errors.New("not implemented")
}

type fakeTelegramClient struct {
	mu      sync.Mutex
	sentTo  []int64
	texts   []string
	sendErr error
	failFor map[int64]bool
}

func (f *fakeTelegramClient) SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.failFor[recipientChatID] {
		return errors.New("telegram: 403 forbidden")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTo = append(f.sentTo, recipientChatID)
	f.texts = append(f.texts, text)
	return nil
}

// absentCorpus keeps dispatch tests independent of corpus files: every lookup
// misses and the chain lands on the procedural generator.
type absentCorpus struct{}

func (absentCorpus) Resolve(ctx context.Context, sign horoscope.Sign, isoDate string) horoscope.Outcome {
	return horoscope.Absent()
}

func newTestDispatch(repo *fakeSubscriberRepo, tg *fakeTelegramClient, now time.Time) *DispatchService {
	content := NewContentService(absentCorpus{}, nil, testEntry())
	svc := NewDispatchService(repo, content, tg, testEntry(), 2, 5*time.Second)
	svc.now = func() time.Time { return now }
	return svc
}

func moscowSubscriber() *subscriber.Subscriber {
	return &subscriber.Subscriber{
		ID:         1,
		TelegramID: 100500,
		FirstName:  "Анна",
		Sign:       string(horoscope.SignAries),
		Timezone:   "Europe/Moscow",
		Hour:       9,
		Minute:     0,
		IsActive:   true,
	}
}

func TestDueWindowBoundaries(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	at := func(h, m, s int) time.Time {
		return time.Date(2025, 3, 5, h, m, s, 0, loc)
	}

	cases := []struct {
		name     string
		localNow time.Time
		want     bool
	}{
		{"exact preferred time", at(9, 0, 0), true},
		{"59s before", at(8, 59, 1), true},
		{"60s before is inclusive", at(8, 59, 0), true},
		{"61s before", at(8, 58, 59), false},
		{"59s after", at(9, 0, 59), true},
		{"60s after is exclusive", at(9, 1, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, due(tc.localNow, 9, 0))
		})
	}
}

func TestRunTickDeliversInsideWindow(t *testing.T) {
	sub := moscowSubscriber()
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	// 06:00 UTC is 09:00 in Moscow.
	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 1, Sent: 1}, report)
	require.Len(t, tg.sentTo, 1)
	assert.Equal(t, sub.TelegramID, tg.sentTo[0])
	assert.Contains(t, tg.texts[0], "Овен")
	assert.Contains(t, tg.texts[0], "2025-03-05")

	guard, ok := repo.lastSent[sub.ID]
	require.True(t, ok, "delivery guard must be committed after a confirmed send")
	assert.Equal(t, "2025-03-05", guard.Format("2006-01-02"))
}

func TestRunTickSecondTickIsSatisfied(t *testing.T) {
	sub := moscowSubscriber()
	sub.LastSentDate = sql.NullTime{Time: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), Valid: true}
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	// Shortly after the first delivery, still inside the window.
	now := time.Date(2025, 3, 5, 6, 0, 30, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 1, Skipped: 1}, report)
	assert.Empty(t, tg.sentTo, "satisfied subscriber must not be sent to again")
	assert.Empty(t, repo.lastSent)
}

func TestRunTickSatisfiedYesterdayIsDueToday(t *testing.T) {
	sub := moscowSubscriber()
	sub.LastSentDate = sql.NullTime{Time: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Valid: true}
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())
	assert.Equal(t, TickReport{Evaluated: 1, Sent: 1}, report)
}

func TestRunTickOutsideWindowSkips(t *testing.T) {
	sub := moscowSubscriber()
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	// 05:30 UTC is 08:30 in Moscow, half an hour early.
	now := time.Date(2025, 3, 5, 5, 30, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 1, Skipped: 1}, report)
	assert.Empty(t, tg.sentTo)
}

func TestRunTickUnresolvableTimezoneFallsBackToUTC(t *testing.T) {
	sub := moscowSubscriber()
	sub.Timezone = "Mars/Olympus"
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	// Due at 09:00 UTC under the fallback, not 09:00 Moscow.
	svc := newTestDispatch(repo, tg, time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC))
	report := svc.RunTick(context.Background())
	assert.Equal(t, TickReport{Evaluated: 1, Skipped: 1}, report)

	svc = newTestDispatch(repo, tg, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC))
	report = svc.RunTick(context.Background())
	assert.Equal(t, TickReport{Evaluated: 1, Sent: 1}, report)
}

func TestRunTickSendFailureLeavesGuardUnset(t *testing.T) {
	sub := moscowSubscriber()
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{sendErr: errors.New("telegram: 403 forbidden")}

	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 1, Failed: 1}, report)
	assert.Empty(t, repo.lastSent, "guard must not advance when the send failed")
}

func TestRunTickGuardCommitFailureIsReported(t *testing.T) {
	sub := moscowSubscriber()
	repo := newFakeSubscriberRepo(sub)
	repo.setErr = errors.New("connection reset")
	tg := &fakeTelegramClient{}

	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 1, Failed: 1}, report)
	assert.Len(t, tg.sentTo, 1, "the message itself was delivered")
}

func TestRunTickSkipsInactiveAndUnsigned(t *testing.T) {
	inactive := moscowSubscriber()
	inactive.ID = 2
	inactive.IsActive = false

	unsigned := moscowSubscriber()
	unsigned.ID = 3
	unsigned.Sign = ""

	repo := newFakeSubscriberRepo(inactive, unsigned)
	tg := &fakeTelegramClient{}

	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 2, Skipped: 2}, report)
	assert.Empty(t, tg.sentTo)
}

func TestRunTickIsolatesSubscribers(t *testing.T) {
	// A subscriber with a garbage sign label is skipped without affecting the
	// delivery of the rest of the batch.
	broken := moscowSubscriber()
	broken.ID = 2
	broken.TelegramID = 200600
	broken.Sign = "Дракон"

	ok := moscowSubscriber()

	repo := newFakeSubscriberRepo(broken, ok)
	tg := &fakeTelegramClient{}

	now := time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC)
	svc := newTestDispatch(repo, tg, now)

	report := svc.RunTick(context.Background())

	assert.Equal(t, TickReport{Evaluated: 2, Sent: 1, Skipped: 1}, report)
	require.Len(t, tg.sentTo, 1)
	assert.Equal(t, ok.TelegramID, tg.sentTo[0])
}

func TestRunTickListFailureAbortsQuietly(t *testing.T) {
	repo := newFakeSubscriberRepo()
	repo.listErr = errors.New("database is down")
	tg := &fakeTelegramClient{}

	svc := newTestDispatch(repo, tg, time.Date(2025, 3, 5, 6, 0, 0, 0, time.UTC))
	report := svc.RunTick(context.Background())

	assert.Zero(t, report)
	assert.Empty(t, tg.sentTo)
}

func TestSendNowDoesNotTouchGuard(t *testing.T) {
	sub := moscowSubscriber()
	repo := newFakeSubscriberRepo(sub)
	tg := &fakeTelegramClient{}

	// Far outside the delivery window: /today works at any time of day.
	svc := newTestDispatch(repo, tg, time.Date(2025, 3, 5, 15, 42, 0, 0, time.UTC))

	require.NoError(t, svc.SendNow(context.Background(), sub))
	require.Len(t, tg.sentTo, 1)
	assert.Empty(t, repo.lastSent, "on-demand sends must not advance the delivery guard")
}

func TestSendNowRejectsUnsignedSubscriber(t *testing.T) {
	sub := moscowSubscriber()
	sub.Sign = ""
	svc := newTestDispatch(newFakeSubscriberRepo(sub), &fakeTelegramClient{}, time.Now())

	assert.Error(t, svc.SendNow(context.Background(), sub))
}
