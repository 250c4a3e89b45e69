package app

import (
	"context"
	"errors"
	"testing"

	"daily_horoscope_bot/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 42

type fakeCorpusCache struct {
	invalidations int
}

func (f *fakeCorpusCache) Invalidate() { f.invalidations++ }

type statsRepo struct {
	fakeSubscriberRepo
	stats  *subscriber.Stats
	active []*subscriber.Subscriber
}

func (r *statsRepo) Stats(ctx context.Context) (*subscriber.Stats, error) {
	if r.stats == nil {
		return nil, errors.New("stats query failed")
	}
	return r.stats, nil
}

func (r *statsRepo) ListActive(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.active, nil
}

func newTestAdmin(repo subscriber.Repository, tg *fakeTelegramClient, cache *fakeCorpusCache) *AdminService {
	return NewAdminService(repo, tg, cache, testEntry(), adminID)
}

func TestAdminCommandsRejectNonAdmin(t *testing.T) {
	svc := newTestAdmin(&statsRepo{}, &fakeTelegramClient{}, &fakeCorpusCache{})

	_, err := svc.Stats(context.Background(), adminID+1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)

	err = svc.ReloadCorpus(adminID + 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)

	_, _, err = svc.Broadcast(context.Background(), adminID+1, "привет")
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
}

func TestAdminStats(t *testing.T) {
	repo := &statsRepo{stats: &subscriber.Stats{Total: 10, Active: 7, SentToday: 3}}
	svc := newTestAdmin(repo, &fakeTelegramClient{}, &fakeCorpusCache{})

	stats, err := svc.Stats(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 7, stats.Active)
	assert.Equal(t, 3, stats.SentToday)
}

func TestAdminReloadInvalidatesCorpus(t *testing.T) {
	cache := &fakeCorpusCache{}
	svc := newTestAdmin(&statsRepo{}, &fakeTelegramClient{}, cache)

	require.NoError(t, svc.ReloadCorpus(adminID))
	assert.Equal(t, 1, cache.invalidations)
}

func TestAdminBroadcastCountsFailures(t *testing.T) {
	repo := &statsRepo{active: []*subscriber.Subscriber{
		{ID: 1, TelegramID: 111},
		{ID: 2, TelegramID: 222},
		{ID: 3, TelegramID: 333},
	}}
	tg := &fakeTelegramClient{failFor: map[int64]bool{222: true}}
	svc := newTestAdmin(repo, tg, &fakeCorpusCache{})

	sent, failed, err := svc.Broadcast(context.Background(), adminID, "важное объявление")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
	assert.ElementsMatch(t, []int64{111, 333}, tg.sentTo)
}
