// Package corpus resolves authored daily horoscope entries from monthly
// JSON files.
//
// Months are loaded lazily and cached for the process lifetime. A month with
// no parseable source is memoized as absent, so a corpus file added after
// startup is not picked up until the process restarts or an admin invokes
// Invalidate (the /reload command).
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"daily_horoscope_bot/internal/domain/horoscope"

	"github.com/sirupsen/logrus"
)

// Entry is one authored horoscope for an exact (sign, date) pair.
type Entry struct {
	Date          string `json:"date"` // ISO date, e.g. "2025-03-05"
	Sign          string `json:"sign"`
	Theme         string `json:"theme"`
	Work          string `json:"work"`
	Relationships string `json:"relationships"`
	Finances      string `json:"finances"`
	Energy        string `json:"energy"`
	Advice        string `json:"advice"`
}

// wrappedFile is the alternative source shape: entries nested under a key.
type wrappedFile struct {
	Horoscopes []Entry `json:"horoscopes"`
}

type monthKey struct {
	year  int
	month time.Month
}

// Store is a file-backed authored corpus with an in-memory monthly cache.
// Reads are concurrent-safe; population on miss is last-writer-wins, which
// is fine since content is immutable per month.
type Store struct {
	dir          string // month-partitioned corpus directory
	overridePath string // optional explicit override file, tried first
	log          *logrus.Entry

	mu     sync.RWMutex
	months map[monthKey][]Entry // nil value = memoized absent
}

func NewStore(dir, overridePath string, log *logrus.Entry) *Store {
	return &Store{
		dir:          dir,
		overridePath: overridePath,
		log:          log,
		months:       make(map[monthKey][]Entry),
	}
}

// Resolve implements horoscope.Resolver. A missing entry is Absent, never an
// error; only an unparseable date argument counts as a failure.
func (s *Store) Resolve(_ context.Context, sign horoscope.Sign, isoDate string) horoscope.Outcome {
	day, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return horoscope.Failed(fmt.Errorf("corpus: bad date %q: %w", isoDate, err))
	}

	entries := s.monthEntries(monthKey{year: day.Year(), month: day.Month()})
	for i := range entries {
		e := &entries[i]
		if e.Date == isoDate && e.Sign == string(sign) {
			body := horoscope.Body{
				Theme:         e.Theme,
				Work:          e.Work,
				Relationships: e.Relationships,
				Finances:      e.Finances,
				Energy:        e.Energy,
				Advice:        e.Advice,
			}
			return horoscope.Resolved(horoscope.ProvenanceCorpus, body.Render(sign, isoDate))
		}
	}
	return horoscope.Absent()
}

// Invalidate drops all cached months, including memoized-absent ones. The
// next lookup re-reads the filesystem.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.months = make(map[monthKey][]Entry)
	s.mu.Unlock()
	s.log.Info("Corpus cache invalidated")
}

func (s *Store) monthEntries(key monthKey) []Entry {
	s.mu.RLock()
	entries, ok := s.months[key]
	s.mu.RUnlock()
	if ok {
		return entries
	}

	entries = s.loadMonth(key)

	s.mu.Lock()
	s.months[key] = entries
	s.mu.Unlock()
	return entries
}

// candidatePaths lists source locations from most to least specific.
func (s *Store) candidatePaths(key monthKey) []string {
	paths := make([]string, 0, 4)
	if s.overridePath != "" {
		paths = append(paths, s.overridePath)
	}
	paths = append(paths,
		filepath.Join(s.dir, fmt.Sprintf("%04d", key.year), fmt.Sprintf("%02d.json", key.month)),
		filepath.Join(s.dir, fmt.Sprintf("horoscopes-%04d-%02d.json", key.year, key.month)),
		"horoscopes.json",
	)
	return paths
}

// loadMonth tries each candidate location and accepts the first one that
// parses. Returns nil when no source exists, which callers memoize as absent.
func (s *Store) loadMonth(key monthKey) []Entry {
	for _, path := range s.candidatePaths(key) {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.WithError(err).WithField("path", path).Warn("Corpus source unreadable, trying next")
			}
			continue
		}

		entries, err := parseEntries(raw)
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("Corpus source unparseable, trying next")
			continue
		}

		s.log.WithFields(logrus.Fields{
			"path":    path,
			"year":    key.year,
			"month":   int(key.month),
			"entries": len(entries),
		}).Info("Corpus month loaded")
		return entries
	}

	s.log.WithFields(logrus.Fields{
		"year":  key.year,
		"month": int(key.month),
	}).Debug("No corpus source for month, memoizing as absent")
	return nil
}

// parseEntries accepts either a bare entry list or a wrapper object holding
// the list under the "horoscopes" key.
func parseEntries(raw []byte) ([]Entry, error) {
	var bare []Entry
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	var wrapped wrappedFile
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("neither bare list nor wrapper object: %w", err)
	}
	if wrapped.Horoscopes == nil {
		return nil, fmt.Errorf("wrapper object has no \"horoscopes\" list")
	}
	return wrapped.Horoscopes, nil
}
