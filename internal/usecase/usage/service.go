package usage

import (
	"context"
	"fmt"
	"time"
)

// Report is the current AI token spend with the window boundaries.
type Report struct {
	DailyTokens   int64
	MonthlyTokens int64
	DayResetsAt   time.Time
	MonthResetsAt time.Time
}

// Service reports token usage for the current day and month windows (UTC).
type Service struct {
	ledger LedgerReader

	now func() time.Time // injected for tests
}

// New creates a Service.
func New(ledger LedgerReader) *Service {
	return &Service{ledger: ledger, now: time.Now}
}

// Report reads both counters and computes when each window rolls over.
func (s *Service) Report(ctx context.Context) (Report, error) {
	daily, err := s.ledger.Daily(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("daily usage: %w", err)
	}
	monthly, err := s.ledger.Monthly(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("monthly usage: %w", err)
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	return Report{
		DailyTokens:   daily,
		MonthlyTokens: monthly,
		DayResetsAt:   dayStart.Add(24 * time.Hour),
		MonthResetsAt: monthStart.AddDate(0, 1, 0),
	}, nil
}
