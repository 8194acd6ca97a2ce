package stats

import (
	"context"
	"time"

	"skyfall-dashboard/internal/storage"
)

type Service struct {
	store *storage.Store
	now   func() time.Time
}

func New(store *storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Summary struct {
	Cases       []storage.Case
	TotalCases  int
	TodaysCases int
}

func (s *Service) Summary(ctx context.Context, guildID string, limit int) (Summary, error) {
	cases, err := s.store.ListCases(ctx, guildID, limit)
	if err != nil {
		return Summary{}, err
	}
	total, err := s.store.CountCases(ctx, guildID)
	if err != nil {
		return Summary{}, err
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.store.CountCasesSince(ctx, guildID, midnight)
	if err != nil {
		return Summary{}, err
	}

	return Summary{Cases: cases, TotalCases: total, TodaysCases: today}, nil
}
