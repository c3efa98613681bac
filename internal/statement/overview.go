package statement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// BuildHouseOverview lays out the aggregate cost overview for one house and
// settlement period.
func BuildHouseOverview(data *HouseOverviewData) *HouseOverviewDoc {
	if data == nil {
		data = &HouseOverviewData{}
	}

	doc := &HouseOverviewDoc{
		Title:      "Kostenübersicht",
		PeriodLine: periodLine(data.Period),
		HouseName:  Placeholder,
	}
	if data.Period != nil && data.Period.HouseName != "" {
		doc.HouseName = data.Period.HouseName
	}

	doc.Metrics = []MetricLine{
		{Label: "Gesamtfläche", Value: FormatAmountPtr(data.TotalArea, "m²")},
		{Label: "Wohnungen", Value: fmt.Sprintf("%d", data.ApartmentCount)},
		{Label: "Mieter", Value: fmt.Sprintf("%d", data.TenantCount)},
		{Label: "Gesamtkosten", Value: FormatEURPtr(data.TotalCosts)},
		{Label: "Kosten pro m²", Value: FormatEURPtr(data.CostPerSqm)},
	}

	total := decimal.Zero
	for _, category := range data.Categories {
		doc.Categories = append(doc.Categories, AmountRow{
			Label:  category.Name,
			Amount: FormatEURPtr(category.Total),
		})
		if category.Total != nil {
			total = total.Add(decimal.NewFromFloat(*category.Total))
		}
	}
	doc.CategoriesTotal = FormatEUR(total)

	doc.MeterRows = meterRows(data.Period)

	return doc
}

// meterRows builds the optional per-meter-type breakdown. Meters are sorted
// by name so the layout is stable.
func meterRows(period *CostPeriod) []MeterRow {
	if period == nil || (len(period.WaterCostPerMeter) == 0 && len(period.WaterUsagePerMeter) == 0) {
		return nil
	}

	names := make(map[string]struct{})
	for name := range period.WaterCostPerMeter {
		names[name] = struct{}{}
	}
	for name := range period.WaterUsagePerMeter {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	rows := make([]MeterRow, 0, len(sorted))
	for _, name := range sorted {
		row := MeterRow{
			Meter:     name,
			Cost:      Placeholder,
			Usage:     Placeholder,
			UnitPrice: Placeholder,
		}
		cost, hasCost := period.WaterCostPerMeter[name]
		usage, hasUsage := period.WaterUsagePerMeter[name]
		if hasCost {
			row.Cost = FormatEUR(decimal.NewFromFloat(cost))
		}
		if hasUsage {
			row.Usage = FormatAmount(decimal.NewFromFloat(usage)) + " m³"
		}
		if hasCost && hasUsage && usage != 0 {
			row.UnitPrice = FormatEUR(decimal.NewFromFloat(cost).Div(decimal.NewFromFloat(usage)))
		}
		rows = append(rows, row)
	}
	return rows
}
