package statement

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// Dataset is one rectangular table destined for CSV export.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// DecodeDataset accepts the tabular shapes the application sends: a list of
// rows (each a list of primitive cells), a list of flat objects whose sorted
// keys become the header, or a {columns, rows} object.
func DecodeDataset(raw json.RawMessage) (*Dataset, error) {
	if len(raw) == 0 {
		return nil, ierr.NewError("missing data").
			WithHint("data is required for csv export").
			Mark(ierr.ErrValidation)
	}

	var cells [][]any
	if err := json.Unmarshal(raw, &cells); err == nil {
		ds := &Dataset{}
		for _, row := range cells {
			ds.Rows = append(ds.Rows, stringifyRow(row))
		}
		return ds, nil
	}

	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err == nil {
		ds := &Dataset{}
		if len(objects) > 0 {
			for key := range objects[0] {
				ds.Columns = append(ds.Columns, key)
			}
			sort.Strings(ds.Columns)
		}
		for _, obj := range objects {
			row := make([]string, 0, len(ds.Columns))
			for _, key := range ds.Columns {
				row = append(row, stringifyCell(obj[key]))
			}
			ds.Rows = append(ds.Rows, row)
		}
		return ds, nil
	}

	var table struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal(raw, &table); err == nil && (len(table.Columns) > 0 || len(table.Rows) > 0) {
		ds := &Dataset{Columns: table.Columns}
		for _, row := range table.Rows {
			ds.Rows = append(ds.Rows, stringifyRow(row))
		}
		return ds, nil
	}

	return nil, ierr.NewError("unsupported data shape").
		WithHint("data must be a list of rows, a list of objects, or a columns/rows table").
		Mark(ierr.ErrValidation)
}

// WriteCSV serializes a dataset to flat comma-separated text.
func WriteCSV(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(ds.Columns) > 0 {
		if err := w.Write(ds.Columns); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
	}
	if err := w.WriteAll(ds.Rows); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	w.Flush()
	return buf.Bytes(), nil
}

// ParseCSV reads flat comma-separated text back into a dataset.
func ParseCSV(data []byte) (*Dataset, error) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrValidation)
	}
	return &Dataset{Rows: rows}, nil
}

// ZipEntry is one named tabular dataset inside a CSV archive.
type ZipEntry struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// StatementZipEntry is one named tenant statement inside a PDF archive.
type StatementZipEntry struct {
	Name       string       `json:"name"`
	Billing    *BillingData `json:"abrechnung"`
	CostPeriod *CostPeriod  `json:"nebenkosten"`
}

// BuildCSVZip writes each named dataset as one CSV file into a zip archive.
func BuildCSVZip(entries []ZipEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, entry := range entries {
		ds, err := DecodeDataset(entry.Data)
		if err != nil {
			return nil, err
		}
		data, err := WriteCSV(ds)
		if err != nil {
			return nil, err
		}
		f, err := zw.Create(entryName(entry.Name, i, ".csv"))
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		if _, err := f.Write(data); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	return buf.Bytes(), nil
}

// BuildStatementZip renders each named payload as a tenant statement PDF and
// archives them, accumulating the total page count across entries.
func BuildStatementZip(
	ctx context.Context,
	r Renderer,
	entries []StatementZipEntry,
) (archive []byte, totalPages int, err error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, entry := range entries {
		result, err := r.RenderTenantStatement(ctx, entry.Billing, entry.CostPeriod)
		if err != nil {
			return nil, 0, err
		}
		totalPages += result.Pages

		f, err := zw.Create(entryName(entry.Name, i, ".pdf"))
		if err != nil {
			return nil, 0, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		if _, err := f.Write(result.PDF); err != nil {
			return nil, 0, ierr.WithError(err).Mark(ierr.ErrSystem)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, 0, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	return buf.Bytes(), totalPages, nil
}

func entryName(name string, index int, ext string) string {
	if name == "" {
		name = fmt.Sprintf("export-%d", index+1)
	}
	return name + ext
}

func stringifyRow(row []any) []string {
	out := make([]string, 0, len(row))
	for _, cell := range row {
		out = append(out, stringifyCell(cell))
	}
	return out
}

func stringifyCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
