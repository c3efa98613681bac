package dto

import (
	"encoding/json"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/statement"
)

// Export type discriminators.
const (
	ExportTypeCSV = "csv"
	ExportTypeZip = "zip"
	ExportTypePDF = "pdf"
)

// PDF template names.
const (
	TemplateTenantStatement = "tenant-statement"
	TemplateHouseOverview   = "house-overview"
)

// ExportRequest is the tagged export payload. The pdf variant carries its
// template data at the top level next to the discriminator; csv and zip
// carry theirs under data.
type ExportRequest struct {
	Type     string          `json:"type" validate:"required,oneof=csv zip pdf"`
	Template string          `json:"template"`
	Filename string          `json:"filename"`
	Data     json.RawMessage `json:"data,omitempty"`

	// tenant statement template
	Billing    *statement.BillingData `json:"abrechnung,omitempty"`
	CostPeriod *statement.CostPeriod  `json:"nebenkosten,omitempty"`

	// house overview template
	TotalArea      *float64                 `json:"totalArea,omitempty"`
	TotalCosts     *float64                 `json:"totalCosts,omitempty"`
	CostPerSqm     *float64                 `json:"costPerSqm,omitempty"`
	ApartmentCount int                      `json:"apartmentCount,omitempty"`
	TenantCount    int                      `json:"tenantCount,omitempty"`
	Categories     []statement.CostCategory `json:"kostenkategorien,omitempty"`
}

func (r *ExportRequest) Validate() error {
	switch r.Type {
	case ExportTypeCSV:
		if len(r.Data) == 0 {
			return ierr.NewError("csv export requires data").
				WithHint("provide a data field with rows").
				Mark(ierr.ErrValidation)
		}
	case ExportTypeZip:
		if len(r.Data) == 0 {
			return ierr.NewError("zip export requires data").
				WithHint("provide a data field with named entries").
				Mark(ierr.ErrValidation)
		}
	case ExportTypePDF:
		if r.Template == TemplateHouseOverview {
			if r.CostPeriod == nil {
				return ierr.NewError("house overview requires nebenkosten").
					WithHint("provide the cost period record").
					Mark(ierr.ErrValidation)
			}
		} else if r.Billing == nil {
			return ierr.NewError("tenant statement requires abrechnung").
				WithHint("provide the billing payload").
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewErrorf("unsupported export type: %s", r.Type).
			WithHint("type must be csv, zip or pdf").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// HouseOverview assembles the overview payload from the request's top-level
// fields.
func (r *ExportRequest) HouseOverview() *statement.HouseOverviewData {
	return &statement.HouseOverviewData{
		Period:         r.CostPeriod,
		TotalArea:      r.TotalArea,
		TotalCosts:     r.TotalCosts,
		CostPerSqm:     r.CostPerSqm,
		ApartmentCount: r.ApartmentCount,
		TenantCount:    r.TenantCount,
		Categories:     r.Categories,
	}
}

// ZipEntries splits the data field into either statement payloads or named
// datasets. A list whose first object carries an abrechnung key is a
// statement archive.
func (r *ExportRequest) ZipEntries() ([]statement.StatementZipEntry, []statement.ZipEntry, error) {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &probe); err != nil {
		return nil, nil, ierr.WithError(err).
			WithHint("zip data must be a list of named entries").
			Mark(ierr.ErrValidation)
	}

	if len(probe) > 0 {
		if _, ok := probe[0]["abrechnung"]; ok {
			var statements []statement.StatementZipEntry
			if err := json.Unmarshal(r.Data, &statements); err != nil {
				return nil, nil, ierr.WithError(err).
					WithHint("invalid statement entries").
					Mark(ierr.ErrValidation)
			}
			return statements, nil, nil
		}
	}

	var datasets []statement.ZipEntry
	if err := json.Unmarshal(r.Data, &datasets); err != nil {
		return nil, nil, ierr.WithError(err).
			WithHint("invalid dataset entries").
			Mark(ierr.ErrValidation)
	}
	return nil, datasets, nil
}
