package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is rendered for any missing numeric value. A missing value is
// not the same as zero.
const Placeholder = "–"

var deDE = message.NewPrinter(language.German)

var zipPattern = regexp.MustCompile(`^\d{5}$`)
var zipPrefixPattern = regexp.MustCompile(`^\d{5}\s+(.+)$`)

// FormatEUR renders an amount in the de-DE currency format.
func FormatEUR(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return deDE.Sprintf("%.2f €", f)
}

// FormatEURPtr renders an optional amount, falling back to the placeholder.
func FormatEURPtr(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatEUR(decimal.NewFromFloat(*v))
}

// FormatAmount renders a plain localized number with two decimals.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return deDE.Sprintf("%.2f", f)
}

// FormatAmountPtr renders an optional plain number with a unit suffix.
func FormatAmountPtr(v *float64, unit string) string {
	if v == nil {
		return Placeholder
	}
	s := FormatAmount(decimal.NewFromFloat(*v))
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// FormatDate renders a localized day.month.year date.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// ParseDate accepts the date formats the application sends.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateString formats a payload date string, passing unparseable input
// through unchanged.
func FormatDateString(s string) string {
	if t, ok := ParseDate(s); ok {
		return FormatDate(t)
	}
	return s
}

// RoundToNearest5 rounds to the closest multiple of 5.
func RoundToNearest5(d decimal.Decimal) decimal.Decimal {
	five := decimal.NewFromInt(5)
	return d.Div(five).Round(0).Mul(five)
}

// ExtractCity derives a city token from a free-text address: the last
// comma-separated segment that is not a bare 5-digit postal code, with a
// leading postal code stripped when the segment carries both.
func ExtractCity(address string) string {
	segments := strings.Split(address, ",")
	for i := len(segments) - 1; i >= 0; i-- {
		segment := strings.TrimSpace(segments[i])
		if segment == "" || zipPattern.MatchString(segment) {
			continue
		}
		if m := zipPrefixPattern.FindStringSubmatch(segment); m != nil {
			return m[1]
		}
		return segment
	}
	return ""
}

// BlendedWaterPrice is the buildingwide price per unit of water: the sum of
// all per-meter-type costs over the sum of all per-meter-type consumptions.
// Zero consumption yields a zero price.
func BlendedWaterPrice(period *CostPeriod) decimal.Decimal {
	if period == nil {
		return decimal.Zero
	}
	totalCost := decimal.Zero
	for _, c := range period.WaterCostPerMeter {
		totalCost = totalCost.Add(decimal.NewFromFloat(c))
	}
	totalUsage := decimal.Zero
	for _, u := range period.WaterUsagePerMeter {
		totalUsage = totalUsage.Add(decimal.NewFromFloat(u))
	}
	if totalUsage.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(totalUsage)
}

// FirstOfNextMonth returns the first day of the calendar month after t.
func FirstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
}
