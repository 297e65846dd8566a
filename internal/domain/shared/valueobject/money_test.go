package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(12.5), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(12.5)))
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})
}

func TestMoney_Add(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromFloat(1.25))
		b := NewMoneyUSD(decimal.NewFromFloat(2.75))

		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Equals(NewMoneyUSD(decimal.NewFromInt(4))))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromInt(1))
		b, _ := NewMoney(decimal.NewFromInt(1), EUR)

		_, err := a.Add(b)
		assert.Error(t, err)
	})
}

func TestMoney_MultiplyByInt(t *testing.T) {
	rate := NewMoneyUSD(decimal.NewFromFloat(0.5))
	assert.True(t, rate.MultiplyByInt(3).Equals(NewMoneyUSD(decimal.NewFromFloat(1.5))))
	assert.True(t, rate.MultiplyByInt(0).IsZero())
}

func TestMoney_JSON(t *testing.T) {
	t.Run("marshals with two decimal places", func(t *testing.T) {
		m := NewMoneyUSD(decimal.NewFromFloat(1.5))
		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"1.50","currency":"USD"}`, string(data))
	})

	t.Run("round-trips", func(t *testing.T) {
		original := NewMoneyUSD(decimal.NewFromFloat(7.25))
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Money
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, original.Equals(decoded))
	})

	t.Run("defaults currency when omitted", func(t *testing.T) {
		var decoded Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"3.00"}`), &decoded))
		assert.Equal(t, DefaultCurrency, decoded.Currency())
	})
}

func TestMoney_ZeroUSD(t *testing.T) {
	z := ZeroUSD()
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
	assert.False(t, z.IsNegative())
}
