package lending

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlib/backend/internal/domain/shared/valueobject"
)

func newTestLoan(t *testing.T, borrowedAt, dueDate time.Time) *Loan {
	t.Helper()
	loan, err := NewLoan(uuid.New(), "student-42", borrowedAt, dueDate)
	require.NoError(t, err)
	return loan
}

func TestDaysLate(t *testing.T) {
	dueDate := time.Date(2026, 3, 15, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"before due date", dueDate.AddDate(0, 0, -3), 0},
		{"on the due date", dueDate, 0},
		{"later the same day", time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), 0},
		{"one minute past midnight", time.Date(2026, 3, 16, 0, 1, 0, 0, time.UTC), 1},
		{"one full day later", dueDate.AddDate(0, 0, 1), 1},
		{"seventeen days later", dueDate.AddDate(0, 0, 17), 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysLate(dueDate, tt.at))
		})
	}

	t.Run("counts midnights across a DST transition", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		// Spring-forward night: the elapsed interval is 23h but one
		// midnight was crossed.
		due := time.Date(2026, 3, 7, 12, 0, 0, 0, loc)
		at := time.Date(2026, 3, 8, 12, 0, 0, 0, loc)
		assert.Equal(t, 1, DaysLate(due, at))
	})
}

func TestFinePolicy_CalculateFine(t *testing.T) {
	rate := valueobject.NewMoneyUSD(decimal.NewFromFloat(0.50))
	policy := NewFinePolicy(rate)

	borrowedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dueDate := borrowedAt.AddDate(0, 0, 14)

	t.Run("zero before and on the due date", func(t *testing.T) {
		loan := newTestLoan(t, borrowedAt, dueDate)

		assert.True(t, policy.CalculateFine(loan, borrowedAt).IsZero())
		assert.True(t, policy.CalculateFine(loan, dueDate).IsZero())
	})

	t.Run("accrues per calendar day while open", func(t *testing.T) {
		loan := newTestLoan(t, borrowedAt, dueDate)

		fine := policy.CalculateFine(loan, dueDate.AddDate(0, 0, 3))
		assert.True(t, fine.Equals(valueobject.NewMoneyUSD(decimal.NewFromFloat(1.50))))
	})

	t.Run("monotonic while the loan stays open", func(t *testing.T) {
		loan := newTestLoan(t, borrowedAt, dueDate)

		previous := valueobject.ZeroUSD()
		for day := 0; day <= 30; day++ {
			fine := policy.CalculateFine(loan, dueDate.AddDate(0, 0, day))
			greater, err := previous.GreaterThan(fine)
			require.NoError(t, err)
			assert.False(t, greater, "fine shrank on day %d", day)
			previous = fine
		}
	})

	t.Run("frozen at settlement", func(t *testing.T) {
		loan := newTestLoan(t, borrowedAt, dueDate)
		require.NoError(t, loan.Close(dueDate.AddDate(0, 0, 4)))

		settled := policy.CalculateFine(loan, dueDate.AddDate(0, 0, 4))
		muchLater := policy.CalculateFine(loan, dueDate.AddDate(0, 1, 0))

		assert.True(t, settled.Equals(valueobject.NewMoneyUSD(decimal.NewFromInt(2))))
		assert.True(t, settled.Equals(muchLater), "closed loan fine must not grow")
	})

	t.Run("on-time return owes nothing forever", func(t *testing.T) {
		loan := newTestLoan(t, borrowedAt, dueDate)
		require.NoError(t, loan.Close(dueDate.AddDate(0, 0, -1)))

		assert.True(t, policy.CalculateFine(loan, dueDate.AddDate(0, 0, 60)).IsZero())
	})
}

func TestNewFinePolicy(t *testing.T) {
	t.Run("negative rate clamps to zero", func(t *testing.T) {
		policy := NewFinePolicy(valueobject.NewMoneyUSD(decimal.NewFromFloat(-1)))
		assert.True(t, policy.DailyRate().IsZero())
	})
}
