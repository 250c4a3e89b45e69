package app

import (
	"context"
	"errors"
	"testing"

	"daily_horoscope_bot/internal/domain/horoscope"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	outcome horoscope.Outcome
	calls   int
}

func (s *stubResolver) Resolve(ctx context.Context, sign horoscope.Sign, isoDate string) horoscope.Outcome {
	s.calls++
	return s.outcome
}

func testEntry() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("component", "test")
}

func TestResolveDailyCorpusHitShortCircuits(t *testing.T) {
	corpus := &stubResolver{outcome: horoscope.Resolved(horoscope.ProvenanceCorpus, "авторский текст")}
	generative := &stubResolver{outcome: horoscope.Resolved(horoscope.ProvenanceGenerative, "сгенерированный текст")}

	svc := NewContentService(corpus, generative, testEntry())
	res := svc.ResolveDaily(context.Background(), horoscope.SignAries, "2025-03-05")

	assert.Equal(t, "авторский текст", res.Text)
	assert.Equal(t, horoscope.ProvenanceCorpus, res.Provenance)
	assert.Equal(t, 1, corpus.calls)
	assert.Zero(t, generative.calls, "generative resolver must not run after a corpus hit")
}

func TestResolveDailyFallsToGenerative(t *testing.T) {
	corpus := &stubResolver{outcome: horoscope.Absent()}
	generative := &stubResolver{outcome: horoscope.Resolved(horoscope.ProvenanceGenerative, "сгенерированный текст")}

	svc := NewContentService(corpus, generative, testEntry())
	res := svc.ResolveDaily(context.Background(), horoscope.SignAries, "2025-03-05")

	assert.Equal(t, "сгенерированный текст", res.Text)
	assert.Equal(t, horoscope.ProvenanceGenerative, res.Provenance)
}

func TestResolveDailyProceduralWhenGenerativeDisabled(t *testing.T) {
	corpus := &stubResolver{outcome: horoscope.Absent()}

	svc := NewContentService(corpus, nil, testEntry())
	res := svc.ResolveDaily(context.Background(), horoscope.SignLeo, "2025-03-05")

	require.NotEmpty(t, res.Text)
	assert.Equal(t, horoscope.ProvenanceProcedural, res.Provenance)
}

func TestResolveDailyTotalDespiteFailures(t *testing.T) {
	corpus := &stubResolver{outcome: horoscope.Failed(errors.New("disk gone"))}
	generative := &stubResolver{outcome: horoscope.Failed(errors.New("api down"))}

	svc := NewContentService(corpus, generative, testEntry())
	res := svc.ResolveDaily(context.Background(), horoscope.SignPisces, "2025-03-05")

	require.NotEmpty(t, res.Text)
	assert.Equal(t, horoscope.ProvenanceProcedural, res.Provenance)
	assert.Equal(t, 1, corpus.calls)
	assert.Equal(t, 1, generative.calls)
}

func TestResolveDailyProceduralIsDeterministicPerKey(t *testing.T) {
	corpus := &stubResolver{outcome: horoscope.Absent()}
	svc := NewContentService(corpus, nil, testEntry())

	first := svc.ResolveDaily(context.Background(), horoscope.SignVirgo, "2025-03-05")
	second := svc.ResolveDaily(context.Background(), horoscope.SignVirgo, "2025-03-05")
	assert.Equal(t, first.Text, second.Text)
}
