package statement

// BillingData is one tenant's cost-share breakdown for a settlement period.
// It arrives from the caller as-is and is never mutated here.
type BillingData struct {
	TenantName     string          `json:"mieter_name"`
	ApartmentName  string          `json:"wohnung_name"`
	OwnerName      string          `json:"eigentuemer_name"`
	OwnerAddress   string          `json:"eigentuemer_adresse"`
	BillingAddress *BillingAddress `json:"billing_address"`
	CostItems      []CostItem      `json:"kostenpunkte"`
	WaterCosts     *WaterCosts     `json:"wasserkosten"`
	Prepayments    *float64        `json:"vorauszahlungen"`
	// Settlement is the computed final amount: positive means the tenant owes
	// a top-up, negative means a credit is due.
	Settlement *float64 `json:"nachzahlung"`
}

// BillingAddress is the explicit structured billing address. When present it
// wins over the free-text owner address.
type BillingAddress struct {
	Name   string `json:"name"`
	Street string `json:"strasse"`
	Zip    string `json:"plz"`
	City   string `json:"ort"`
}

// CostItem is one apportioned cost line.
type CostItem struct {
	Name          string   `json:"name"`
	Total         *float64 `json:"gesamtkosten"`
	AllocationKey string   `json:"umlageschluessel"`
	PricePerSqm   *float64 `json:"preis_pro_qm"`
	TenantShare   *float64 `json:"mieteranteil"`
}

// WaterCosts carries the tenant's metered water consumption and share.
type WaterCosts struct {
	Consumption *float64 `json:"verbrauch"`
	TenantShare *float64 `json:"mieteranteil"`
}

// CostPeriod is the parent settlement period record.
type CostPeriod struct {
	StartDate string `json:"startdatum"`
	EndDate   string `json:"enddatum"`
	HouseName string `json:"haus_name"`
	// per-meter-type cost and consumption maps, used for the buildingwide
	// blended water price
	WaterCostPerMeter  map[string]float64 `json:"wasserkosten_pro_zaehler"`
	WaterUsagePerMeter map[string]float64 `json:"wasserverbrauch_pro_zaehler"`
}

// CostCategory is one aggregate cost bucket on the house overview.
type CostCategory struct {
	Name  string   `json:"name"`
	Total *float64 `json:"betrag"`
}

// HouseOverviewData is the aggregate house statement payload.
type HouseOverviewData struct {
	Period         *CostPeriod    `json:"nebenkosten"`
	TotalArea      *float64       `json:"totalArea"`
	TotalCosts     *float64       `json:"totalCosts"`
	CostPerSqm     *float64       `json:"costPerSqm"`
	ApartmentCount int            `json:"apartmentCount"`
	TenantCount    int            `json:"tenantCount"`
	Categories     []CostCategory `json:"kostenkategorien"`
}

// TenantStatementDoc is the laid-out tenant settlement, ready for rendering.
// Every amount is already formatted; missing values carry the placeholder
// dash.
type TenantStatementDoc struct {
	AddressLines     []string  `json:"AddressLines"`
	IssuedLine       string    `json:"IssuedLine"`
	Title            string    `json:"Title"`
	PeriodLine       string    `json:"PeriodLine"`
	PropertyLine     string    `json:"PropertyLine"`
	TenantLine       string    `json:"TenantLine"`
	Rows             []CostRow `json:"Rows"`
	WaterRow         WaterRow  `json:"WaterRow"`
	GrandTotal       string    `json:"GrandTotal"`
	Prepayments      string    `json:"Prepayments"`
	SettlementLabel  string    `json:"SettlementLabel"`
	SettlementAmount string    `json:"SettlementAmount"`
	Recommendation   string    `json:"Recommendation"`
}

// CostRow is one rendered line of the cost-items table.
type CostRow struct {
	Label       string `json:"Label"`
	Total       string `json:"Total"`
	Unit        string `json:"Unit"`
	PricePerSqm string `json:"PricePerSqm"`
	Share       string `json:"Share"`
}

// WaterRow is the rendered water-cost line.
type WaterRow struct {
	Label       string `json:"Label"`
	Consumption string `json:"Consumption"`
	UnitPrice   string `json:"UnitPrice"`
	Share       string `json:"Share"`
}

// HouseOverviewDoc is the laid-out aggregate house statement.
type HouseOverviewDoc struct {
	Title           string       `json:"Title"`
	PeriodLine      string       `json:"PeriodLine"`
	HouseName       string       `json:"HouseName"`
	Metrics         []MetricLine `json:"Metrics"`
	Categories      []AmountRow  `json:"Categories"`
	CategoriesTotal string       `json:"CategoriesTotal"`
	MeterRows       []MeterRow   `json:"MeterRows"`
}

type MetricLine struct {
	Label string `json:"Label"`
	Value string `json:"Value"`
}

type AmountRow struct {
	Label  string `json:"Label"`
	Amount string `json:"Amount"`
}

// MeterRow is one line of the optional per-meter-type breakdown.
type MeterRow struct {
	Meter     string `json:"Meter"`
	Cost      string `json:"Cost"`
	Usage     string `json:"Usage"`
	UnitPrice string `json:"UnitPrice"`
}
