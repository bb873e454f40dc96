package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/librexlabs/librex/internal/features"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// instanceColumn is the required identifier column in both tables.
const instanceColumn = "instance_id"

// loadCSV reads a CSV file and returns its headers and rows as maps of
// column to value. The first row is treated as headers (column names).
func loadCSV(path string) ([]string, []Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// LoadFeatures reads a feature table: an instance_id column plus one
// numeric column per feature dimension. The header order fixes an
// extractor's dimension layout; an unparsable or empty cell counts as a
// missing attribute and fills with the extractor default (0.0), so
// instances with partial data still get a full-width vector.
func LoadFeatures(path string) (ids []string, vectors [][]float64, err error) {
	headers, rows, err := loadCSV(path)
	if err != nil {
		return nil, nil, err
	}

	featureCols := make([]string, 0, len(headers)-1)
	hasID := false
	for _, h := range headers {
		if h == instanceColumn {
			hasID = true
			continue
		}
		featureCols = append(featureCols, h)
	}
	if !hasID {
		return nil, nil, fmt.Errorf("csv: %s has no %q column", path, instanceColumn)
	}
	if len(featureCols) == 0 {
		return nil, nil, fmt.Errorf("csv: %s has no feature columns", path)
	}

	extractor := features.NewExtractor(featureCols)
	ids = make([]string, 0, len(rows))
	vectors = make([][]float64, 0, len(rows))
	for _, row := range rows {
		attrs := make(map[string]float64, len(featureCols))
		for _, col := range featureCols {
			if v, parseErr := strconv.ParseFloat(row[col], 64); parseErr == nil {
				attrs[col] = v
			}
		}
		ids = append(ids, row[instanceColumn])
		vectors = append(vectors, extractor.Extract(attrs))
	}
	return ids, vectors, nil
}
