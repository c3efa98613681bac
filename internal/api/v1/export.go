package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mietevo/mietevo-backend/internal/api/dto"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/statement"
)

const exposedPDFHeaders = "X-PDF-Page-Count, X-PDF-Generation-Time"

type ExportHandler struct {
	renderer statement.Renderer
	log      *logger.Logger
}

func NewExportHandler(renderer statement.Renderer, log *logger.Logger) *ExportHandler {
	return &ExportHandler{renderer: renderer, log: log}
}

// Export dispatches on the type discriminator and writes the binary result
// directly.
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.log.Errorw("failed to bind export request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	switch req.Type {
	case dto.ExportTypeCSV:
		h.exportCSV(c, &req)
	case dto.ExportTypeZip:
		h.exportZip(c, &req)
	case dto.ExportTypePDF:
		h.exportPDF(c, &req)
	}
}

func (h *ExportHandler) exportCSV(c *gin.Context, req *dto.ExportRequest) {
	ds, err := statement.DecodeDataset(req.Data)
	if err != nil {
		c.Error(err)
		return
	}
	data, err := statement.WriteCSV(ds)
	if err != nil {
		c.Error(err)
		return
	}

	attachment(c, req.Filename, "export.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *ExportHandler) exportZip(c *gin.Context, req *dto.ExportRequest) {
	statements, datasets, err := req.ZipEntries()
	if err != nil {
		c.Error(err)
		return
	}

	if len(statements) > 0 {
		start := time.Now()
		archive, totalPages, err := statement.BuildStatementZip(c.Request.Context(), h.renderer, statements)
		if err != nil {
			c.Error(err)
			return
		}
		setPDFHeaders(c, totalPages, time.Since(start))
		attachment(c, req.Filename, "statements.zip")
		c.Data(http.StatusOK, "application/zip", archive)
		return
	}

	archive, err := statement.BuildCSVZip(datasets)
	if err != nil {
		c.Error(err)
		return
	}
	attachment(c, req.Filename, "export.zip")
	c.Data(http.StatusOK, "application/zip", archive)
}

func (h *ExportHandler) exportPDF(c *gin.Context, req *dto.ExportRequest) {
	ctx := c.Request.Context()
	start := time.Now()

	var result *statement.RenderResult
	var err error
	if req.Template == dto.TemplateHouseOverview {
		result, err = h.renderer.RenderHouseOverview(ctx, req.HouseOverview())
	} else {
		result, err = h.renderer.RenderTenantStatement(ctx, req.Billing, req.CostPeriod)
	}
	if err != nil {
		h.log.Errorw("pdf generation failed", "template", req.Template, "error", err)
		c.Error(err)
		return
	}

	setPDFHeaders(c, result.Pages, time.Since(start))
	attachment(c, req.Filename, "statement.pdf")
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

func setPDFHeaders(c *gin.Context, pages int, elapsed time.Duration) {
	c.Header("X-PDF-Page-Count", strconv.Itoa(pages))
	c.Header("X-PDF-Generation-Time", strconv.FormatInt(elapsed.Milliseconds(), 10))
	c.Header("Access-Control-Expose-Headers", exposedPDFHeaders)
}

func attachment(c *gin.Context, filename, fallback string) {
	if filename == "" {
		filename = fallback
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
