package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/typst"
)

const (
	tenantStatementTemplate = "tenant-statement.typ"
	houseOverviewTemplate   = "house-overview.typ"
)

// RenderResult is one compiled document plus its page count, which callers
// surface for observability.
type RenderResult struct {
	PDF   []byte
	Pages int
}

// Renderer compiles laid-out statements into PDFs.
type Renderer interface {
	RenderTenantStatement(ctx context.Context, data *BillingData, period *CostPeriod) (*RenderResult, error)
	RenderHouseOverview(ctx context.Context, data *HouseOverviewData) (*RenderResult, error)
}

type renderer struct {
	typst typst.Compiler
	clock func() time.Time
}

// NewRenderer creates a typst-backed statement renderer.
func NewRenderer(compiler typst.Compiler) Renderer {
	return &renderer{
		typst: compiler,
		clock: time.Now,
	}
}

func (r *renderer) RenderTenantStatement(ctx context.Context, data *BillingData, period *CostPeriod) (*RenderResult, error) {
	doc := BuildTenantStatement(data, period, r.clock())
	return r.compile(tenantStatementTemplate, doc)
}

func (r *renderer) RenderHouseOverview(ctx context.Context, data *HouseOverviewData) (*RenderResult, error) {
	doc := BuildHouseOverview(data)
	return r.compile(houseOverviewTemplate, doc)
}

func (r *renderer) compile(template string, doc any) (*RenderResult, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to marshal statement data").
			Mark(ierr.ErrSystem)
	}

	pdf, err := r.typst.CompileTemplate(
		template,
		jsonData,
		typst.WithOutputFile(fmt.Sprintf("statement-%d.pdf", r.clock().UnixNano())),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to compile statement template").
			Mark(ierr.ErrSystem)
	}

	return &RenderResult{
		PDF:   pdf,
		Pages: typst.CountPages(pdf),
	}, nil
}
