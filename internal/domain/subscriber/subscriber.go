package subscriber

import (
	"database/sql"
	"time"
)

// Default delivery preferences for subscribers created on first contact.
const (
	DefaultHour   = 9
	DefaultMinute = 0
)

// Subscriber represents a bot user receiving the daily horoscope.
// Corresponds to the 'subscribers' table in migrations/001_subscribers.sql.
type Subscriber struct {
	ID         int64
	TelegramID int64
	FirstName  string
	Sign       string // one of the twelve sign labels, empty until set
	Timezone   string // IANA identifier; may be unresolvable, dispatch falls back to UTC
	Hour       int    // preferred local delivery hour, 0-23
	Minute     int    // preferred local delivery minute, 0-59
	IsActive   bool
	BirthDate  sql.NullTime
	// LastSentDate is the last local calendar date the subscriber was
	// delivered for. Mutated only by the dispatch delivery guard after a
	// confirmed send.
	LastSentDate sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSign reports whether a sign has been assigned. Subscribers without a
// sign are never eligible for dispatch.
func (s *Subscriber) HasSign() bool {
	return s.Sign != ""
}
