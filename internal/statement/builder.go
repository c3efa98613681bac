package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BuildTenantStatement lays out one tenant's annual settlement. The result
// is deterministic for a given payload and reference time; the reference
// time only drives the prepayment recommendation date.
func BuildTenantStatement(data *BillingData, period *CostPeriod, now time.Time) *TenantStatementDoc {
	if data == nil {
		data = &BillingData{}
	}

	doc := &TenantStatementDoc{
		Title: "Betriebskostenabrechnung",
	}

	doc.AddressLines, doc.IssuedLine = addressBlock(data, now)
	doc.PeriodLine = periodLine(period)
	doc.PropertyLine = propertyLine(data, period)
	doc.TenantLine = tenantLine(data)

	itemsTotal := decimal.Zero
	for _, item := range data.CostItems {
		doc.Rows = append(doc.Rows, CostRow{
			Label:       item.Name,
			Total:       FormatEURPtr(item.Total),
			Unit:        allocationUnit(item.AllocationKey),
			PricePerSqm: FormatEURPtr(item.PricePerSqm),
			Share:       FormatEURPtr(item.TenantShare),
		})
		if item.TenantShare != nil {
			itemsTotal = itemsTotal.Add(decimal.NewFromFloat(*item.TenantShare))
		}
	}

	waterShare := decimal.Zero
	doc.WaterRow, waterShare = waterRow(data.WaterCosts, period)

	grandTotal := itemsTotal.Add(waterShare)
	doc.GrandTotal = FormatEUR(grandTotal)
	doc.Prepayments = FormatEURPtr(data.Prepayments)

	settlement := settlementAmount(data, grandTotal)
	if settlement.IsNegative() {
		doc.SettlementLabel = "Guthaben"
	} else {
		doc.SettlementLabel = "Nachzahlung"
	}
	doc.SettlementAmount = FormatEUR(settlement.Abs())

	doc.Recommendation = recommendationLine(grandTotal, now)

	return doc
}

func addressBlock(data *BillingData, now time.Time) ([]string, string) {
	addr := data.BillingAddress
	if addr != nil && (addr.Name != "" || addr.Street != "" || addr.City != "") {
		lines := make([]string, 0, 3)
		if addr.Name != "" {
			lines = append(lines, addr.Name)
		}
		if addr.Street != "" {
			lines = append(lines, addr.Street)
		}
		cityLine := strings.TrimSpace(addr.Zip + " " + addr.City)
		if cityLine != "" {
			lines = append(lines, cityLine)
		}
		city := addr.City
		if city == "" {
			city = ExtractCity(addr.Street)
		}
		return lines, issuedLine(city, now)
	}

	lines := make([]string, 0, 2)
	if data.OwnerName != "" {
		lines = append(lines, data.OwnerName)
	}
	if data.OwnerAddress != "" {
		lines = append(lines, data.OwnerAddress)
	}
	if len(lines) == 0 {
		lines = append(lines, Placeholder)
	}
	return lines, issuedLine(ExtractCity(data.OwnerAddress), now)
}

func issuedLine(city string, now time.Time) string {
	if city == "" {
		return FormatDate(now)
	}
	return fmt.Sprintf("%s, den %s", city, FormatDate(now))
}

func periodLine(period *CostPeriod) string {
	if period == nil {
		return "Abrechnungszeitraum: " + Placeholder
	}
	return fmt.Sprintf(
		"Abrechnungszeitraum: %s – %s",
		FormatDateString(period.StartDate),
		FormatDateString(period.EndDate),
	)
}

func propertyLine(data *BillingData, period *CostPeriod) string {
	house := Placeholder
	if period != nil && period.HouseName != "" {
		house = period.HouseName
	}
	if data.ApartmentName != "" {
		return fmt.Sprintf("Objekt: %s, %s", house, data.ApartmentName)
	}
	return "Objekt: " + house
}

func tenantLine(data *BillingData) string {
	if data.TenantName == "" {
		return "Mieter: " + Placeholder
	}
	return "Mieter: " + data.TenantName
}

func allocationUnit(key string) string {
	if key == "" {
		return Placeholder
	}
	return key
}

func waterRow(water *WaterCosts, period *CostPeriod) (WaterRow, decimal.Decimal) {
	row := WaterRow{
		Label:       "Wasserkosten",
		Consumption: Placeholder,
		UnitPrice:   Placeholder,
		Share:       Placeholder,
	}
	if water == nil {
		return row, decimal.Zero
	}

	unitPrice := BlendedWaterPrice(period)
	row.UnitPrice = FormatEUR(unitPrice)
	row.Consumption = FormatAmountPtr(water.Consumption, "m³")

	share := decimal.Zero
	switch {
	case water.TenantShare != nil:
		share = decimal.NewFromFloat(*water.TenantShare)
	case water.Consumption != nil:
		share = decimal.NewFromFloat(*water.Consumption).Mul(unitPrice)
	default:
		return row, decimal.Zero
	}
	row.Share = FormatEUR(share)
	return row, share
}

func settlementAmount(data *BillingData, grandTotal decimal.Decimal) decimal.Decimal {
	if data.Settlement != nil {
		return decimal.NewFromFloat(*data.Settlement)
	}
	prepaid := decimal.Zero
	if data.Prepayments != nil {
		prepaid = decimal.NewFromFloat(*data.Prepayments)
	}
	return grandTotal.Sub(prepaid)
}

func recommendationLine(grandTotal decimal.Decimal, now time.Time) string {
	annual := RoundToNearest5(grandTotal)
	monthly := annual.Div(decimal.NewFromInt(12))
	from := FirstOfNextMonth(now)
	return fmt.Sprintf(
		"Empfohlene monatliche Vorauszahlung ab %s: %s",
		FormatDate(from),
		FormatEUR(monthly),
	)
}
