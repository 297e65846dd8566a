package lending

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlib/backend/internal/domain/shared/valueobject"
)

// DefaultDailyFineRate is the fallback per-day fine when no rate is configured
var DefaultDailyFineRate = valueobject.NewMoneyUSD(decimal.NewFromFloat(0.50))

// FinePolicy computes late fees for loans. The fine counts calendar days
// late, not elapsed 24h periods: a return one minute past midnight after the
// due date already owes one day. Closed loans are settled, their fine is
// frozen at the return time and never grows.
type FinePolicy struct {
	dailyRate valueobject.Money
}

// NewFinePolicy creates a fine policy with the given per-day rate
func NewFinePolicy(dailyRate valueobject.Money) FinePolicy {
	if dailyRate.IsNegative() {
		dailyRate = valueobject.Zero(dailyRate.Currency())
	}
	return FinePolicy{dailyRate: dailyRate}
}

// DailyRate returns the per-day rate
func (p FinePolicy) DailyRate() valueobject.Money {
	return p.dailyRate
}

// CalculateFine returns the fine owed on the loan as observed at the given
// time. Open loans accrue against now; closed loans are frozen at ReturnedAt.
func (p FinePolicy) CalculateFine(loan *Loan, now time.Time) valueobject.Money {
	settledAt := now
	if loan.ReturnedAt != nil {
		settledAt = *loan.ReturnedAt
	}

	days := DaysLate(loan.DueDate, settledAt)
	if days <= 0 {
		return valueobject.Zero(p.dailyRate.Currency())
	}

	return p.dailyRate.MultiplyByInt(int64(days))
}

// DaysLate counts the calendar days between the due date and the reference
// time, floored at 0. Both instants are truncated to local midnight first, so
// the count is the number of midnights crossed. The rounded division absorbs
// the off-by-an-hour offsets that DST transitions introduce between midnights.
func DaysLate(dueDate, at time.Time) int {
	due := startOfDay(dueDate)
	ref := startOfDay(at)

	days := int(ref.Sub(due).Round(24*time.Hour) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
