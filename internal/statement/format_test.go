package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExtractCity(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"city after zip segment", "Musterstraße 1, 12345, Berlin", "Berlin"},
		{"zip and city in one segment", "Musterstraße 1, 12345 Berlin", "Berlin"},
		{"no comma", "Hamburg", "Hamburg"},
		{"only zip segments", "12345, 54321", ""},
		{"empty", "", ""},
		{"trailing empty segment", "Musterweg 2, München, ", "München"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCity(tt.address))
		})
	}
}

func TestRoundToNearest5(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{2.4, "0"},
		{2.5, "5"},
		{7.5, "10"},
		{12.3, "10"},
		{13, "15"},
		{-3, "-5"},
		{997.4, "995"},
	}

	for _, tt := range tests {
		got := RoundToNearest5(decimal.NewFromFloat(tt.in))
		assert.Equal(t, tt.want, got.String(), "round %v", tt.in)
		assert.True(t, got.Mod(decimal.NewFromInt(5)).IsZero())
		diff := got.Sub(decimal.NewFromFloat(tt.in)).Abs()
		assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(2.5)),
			"|%s - %v| must be <= 2.5", got, tt.in)
	}
}

func TestFormatEUR(t *testing.T) {
	assert.Equal(t, "1.234,56 €", FormatEUR(decimal.NewFromFloat(1234.56)))
	assert.Equal(t, "0,00 €", FormatEUR(decimal.Zero))
	assert.Equal(t, "-12,50 €", FormatEUR(decimal.NewFromFloat(-12.5)))
}

func TestFormatEURPtrMissingValue(t *testing.T) {
	assert.Equal(t, Placeholder, FormatEURPtr(nil))
}

func TestBlendedWaterPrice(t *testing.T) {
	period := &CostPeriod{
		WaterCostPerMeter:  map[string]float64{"kalt": 300, "warm": 200},
		WaterUsagePerMeter: map[string]float64{"kalt": 80, "warm": 20},
	}
	price := BlendedWaterPrice(period)
	assert.Equal(t, "5", price.String())
}

func TestBlendedWaterPriceZeroConsumption(t *testing.T) {
	period := &CostPeriod{
		WaterCostPerMeter:  map[string]float64{"kalt": 300},
		WaterUsagePerMeter: map[string]float64{},
	}
	assert.True(t, BlendedWaterPrice(period).IsZero())
	assert.True(t, BlendedWaterPrice(nil).IsZero())
}

func TestFirstOfNextMonth(t *testing.T) {
	now := time.Date(2024, 12, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), FirstOfNextMonth(now))

	now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), FirstOfNextMonth(now))
}

func TestFormatDateString(t *testing.T) {
	assert.Equal(t, "01.01.2024", FormatDateString("2024-01-01"))
	assert.Equal(t, "garbage", FormatDateString("garbage"))
}
