package app

import (
	"context"

	"daily_horoscope_bot/internal/domain/horoscope"

	"github.com/sirupsen/logrus"
)

// Resolution is the total result of the content chain: a rendered message
// body and the provenance of the resolver that produced it.
type Resolution struct {
	Text       string
	Provenance horoscope.Provenance
}

// ContentService orchestrates the fixed fallback chain:
// authored corpus, then the generative resolver (when configured), then the
// procedural generator. The procedural generator cannot fail, so resolution
// as a whole is total.
type ContentService struct {
	corpus     horoscope.Resolver
	generative horoscope.Resolver // nil when generative content is disabled
	procedural horoscope.Resolver
	logger     *logrus.Entry
}

func NewContentService(corpus horoscope.Resolver, generative horoscope.Resolver, logger *logrus.Entry) *ContentService {
	return &ContentService{
		corpus:     corpus,
		generative: generative,
		procedural: horoscope.NewProceduralResolver(),
		logger:     logger,
	}
}

// ResolveDaily returns the message body for a (sign, local date) pair.
func (s *ContentService) ResolveDaily(ctx context.Context, sign horoscope.Sign, isoDate string) Resolution {
	chain := []horoscope.Resolver{s.corpus}
	if s.generative != nil {
		chain = append(chain, s.generative)
	}
	chain = append(chain, s.procedural)

	logCtx := s.logger.WithFields(logrus.Fields{"sign": string(sign), "date": isoDate})
	for _, r := range chain {
		outcome := r.Resolve(ctx, sign, isoDate)
		switch outcome.Status {
		case horoscope.StatusResolved:
			logCtx.WithField("provenance", string(outcome.Provenance)).Debug("Content resolved")
			return Resolution{Text: outcome.Text, Provenance: outcome.Provenance}
		case horoscope.StatusFailed:
			logCtx.WithError(outcome.Err).Warn("Content resolver failed, falling through")
		}
		// StatusAbsent falls through silently.
	}

	// Unreachable while the procedural resolver is terminal, but resolution
	// must stay total even if the chain is misconfigured.
	body := horoscope.GenerateProcedural(sign, isoDate)
	return Resolution{Text: body.Render(sign, isoDate), Provenance: horoscope.ProvenanceProcedural}
}
