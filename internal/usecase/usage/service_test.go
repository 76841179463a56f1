package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockLedger struct {
	daily   int64
	monthly int64
	err     error
}

func (m *mockLedger) Daily(_ context.Context) (int64, error)   { return m.daily, m.err }
func (m *mockLedger) Monthly(_ context.Context) (int64, error) { return m.monthly, m.err }

// --- Tests ---

func TestReport(t *testing.T) {
	svc := New(&mockLedger{daily: 100, monthly: 2500})
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 28, 15, 30, 0, 0, time.UTC)
	}

	rep, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.DailyTokens != 100 || rep.MonthlyTokens != 2500 {
		t.Errorf("unexpected totals: %+v", rep)
	}

	wantDay := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	if !rep.DayResetsAt.Equal(wantDay) {
		t.Errorf("expected day reset %v, got %v", wantDay, rep.DayResetsAt)
	}
	wantMonth := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	if !rep.MonthResetsAt.Equal(wantMonth) {
		t.Errorf("expected month reset %v, got %v", wantMonth, rep.MonthResetsAt)
	}
}

func TestReport_MonthRolloverAtYearEnd(t *testing.T) {
	svc := New(&mockLedger{})
	svc.now = func() time.Time {
		return time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	}

	rep, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantMonth := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !rep.MonthResetsAt.Equal(wantMonth) {
		t.Errorf("expected month reset %v, got %v", wantMonth, rep.MonthResetsAt)
	}
}

func TestReport_LedgerFailure(t *testing.T) {
	svc := New(&mockLedger{err: errors.New("store down")})

	if _, err := svc.Report(context.Background()); err == nil {
		t.Fatal("expected error from ledger failure")
	}
}
