package app

import (
	"context"
	"fmt"

	"daily_horoscope_bot/internal/domain/subscriber"
	domainTelegram "daily_horoscope_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// CorpusCache is the slice of the corpus store the admin service needs for
// the /reload command.
type CorpusCache interface {
	Invalidate()
}

type AdminService struct {
	subRepo         subscriber.Repository
	telegramClient  domainTelegram.Client
	corpusCache     CorpusCache
	logger          *logrus.Entry
	adminTelegramID int64
}

func NewAdminService(
	subRepo subscriber.Repository,
	telegramClient domainTelegram.Client,
	corpusCache CorpusCache,
	logger *logrus.Entry,
	adminTelegramID int64,
) *AdminService {
	return &AdminService{
		subRepo:         subRepo,
		telegramClient:  telegramClient,
		corpusCache:     corpusCache,
		logger:          logger,
		adminTelegramID: adminTelegramID,
	}
}

// Stats returns aggregate subscriber counts for the /stats command.
func (s *AdminService) Stats(ctx context.Context, performingAdminID int64) (*subscriber.Stats, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	stats, err := s.subRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriber stats: %w", err)
	}
	return stats, nil
}

// ReloadCorpus drops the monthly corpus cache, including memoized-absent
// months, so newly deployed corpus files are picked up without a restart.
func (s *AdminService) ReloadCorpus(performingAdminID int64) error {
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	s.corpusCache.Invalidate()
	return nil
}

// Broadcast sends a one-off message to every active subscriber through the
// rate-limited transport. Individual send failures are logged and counted,
// not propagated.
func (s *AdminService) Broadcast(ctx context.Context, performingAdminID int64, text string) (sent, failed int, err error) {
	if performingAdminID != s.adminTelegramID {
		return 0, 0, ErrAdminNotAuthorized
	}

	subs, err := s.subRepo.ListActive(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list active subscribers: %w", err)
	}

	for _, sub := range subs {
		if err := s.telegramClient.SendMessage(ctx, sub.TelegramID, text, nil); err != nil {
			s.logger.WithError(err).WithField("telegram_id", sub.TelegramID).Warn("Broadcast send failed")
			failed++
			continue
		}
		sent++
	}
	s.logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Broadcast completed")
	return sent, failed, nil
}
