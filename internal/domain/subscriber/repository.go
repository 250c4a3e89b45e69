package subscriber

import (
	"context"
	"time"
)

// Stats holds aggregate subscriber counts for the admin /stats command.
type Stats struct {
	Total     int
	Active    int
	SentToday int
}

// Repository defines the operations for persisting and retrieving Subscriber
// entities.
type Repository interface {
	Create(ctx context.Context, sub *Subscriber) error
	GetByID(ctx context.Context, id int64) (*Subscriber, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Subscriber, error)
	// Update persists Sign, Timezone, Hour, Minute, IsActive, FirstName and
	// BirthDate. LastSentDate is deliberately excluded: it is written only
	// through SetLastSentDate.
	Update(ctx context.Context, sub *Subscriber) error
	// ListDispatchable returns active subscribers with a sign assigned,
	// i.e. the set the minute tick evaluates.
	ListDispatchable(ctx context.Context) ([]*Subscriber, error)
	// ListActive returns all active subscribers regardless of sign
	// (used by the admin broadcast).
	ListActive(ctx context.Context) ([]*Subscriber, error)
	// SetLastSentDate commits delivery-guard satisfaction for one subscriber.
	// The write is scoped to that subscriber's row.
	SetLastSentDate(ctx context.Context, id int64, date time.Time) error
	Stats(ctx context.Context) (*Stats, error)
}
