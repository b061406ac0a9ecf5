// Package loader reads the two choropleth inputs: an area table (XLSX or CSV)
// and a boundary shapefile.
package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/fetcher"
	"github.com/sells-group/choropleth-cli/internal/model"
)

// AreaSchema locates the columns of the area table.
type AreaSchema struct {
	SheetName   string // XLSX only; overrides SheetIndex
	SheetIndex  int    // XLSX only
	HeaderRow   int    // zero-based row holding the column names
	CodeColumn  string
	NameColumn  string // optional
	ValueColumn string
}

// LoadAreas reads the area table at path. The format follows the extension:
// .xlsx or .csv.
func LoadAreas(ctx context.Context, path string, schema AreaSchema) ([]model.AreaRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		rows, err = fetcher.ReadXLSX(path, fetcher.XLSXOptions{
			SheetIndex: schema.SheetIndex,
			SheetName:  schema.SheetName,
		})
	case ".csv":
		rows, err = fetcher.ReadCSV(ctx, path, fetcher.CSVOptions{TrimSpace: true})
	default:
		return nil, eris.Errorf("loader: unsupported area file type %q", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}

	records, err := AreasFromRows(rows, schema)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", path)
	}
	zap.L().Info("loaded areas",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// AreasFromRows turns raw table rows into area records. Rows above
// schema.HeaderRow are ignored; rows with an empty code are skipped.
func AreasFromRows(rows [][]string, schema AreaSchema) ([]model.AreaRecord, error) {
	if schema.HeaderRow < 0 || schema.HeaderRow >= len(rows) {
		return nil, eris.Errorf("loader: header row %d out of range (%d rows)", schema.HeaderRow, len(rows))
	}

	header := headerIndex(rows[schema.HeaderRow])
	codeIdx, ok := header[normalizeColumn(schema.CodeColumn)]
	if !ok {
		return nil, eris.Errorf("loader: code column %q not found", schema.CodeColumn)
	}
	valueIdx, ok := header[normalizeColumn(schema.ValueColumn)]
	if !ok {
		return nil, eris.Errorf("loader: value column %q not found", schema.ValueColumn)
	}
	nameIdx := -1
	if schema.NameColumn != "" {
		if i, found := header[normalizeColumn(schema.NameColumn)]; found {
			nameIdx = i
		} else {
			zap.L().Warn("loader: name column not found, names left blank",
				zap.String("column", schema.NameColumn),
			)
		}
	}

	data := rows[schema.HeaderRow+1:]
	records := make([]model.AreaRecord, 0, len(data))
	var skipped, missing int
	for _, row := range data {
		code := strings.TrimSpace(cell(row, codeIdx))
		if code == "" {
			skipped++
			continue
		}
		rec := model.AreaRecord{
			Code:  code,
			Value: ParseValue(cell(row, valueIdx)),
		}
		if nameIdx >= 0 {
			rec.Name = strings.TrimSpace(cell(row, nameIdx))
		}
		if rec.Value == nil {
			missing++
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped rows without an area code", zap.Int("skipped", skipped))
	}
	if missing > 0 {
		zap.L().Debug("loader: rows without a usable value", zap.Int("rows", missing))
	}
	return records, nil
}

// headerIndex maps normalized column names to their first position.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeColumn(name)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// cell returns row[i], or "" when the row is too short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
