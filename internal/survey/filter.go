package survey

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
)

// BaseColumns are kept for every network alongside its usage column.
var BaseColumns = []string{"P65", "P69", "P60A"}

// RecodeColumn is rescaled from 0–10 to 0–5.
const RecodeColumn = "P69"

// HappinessRecode halves the 0–10 happiness scale onto 0–5.
var HappinessRecode = map[float64]float64{
	0: 0, 1: 0, 2: 1, 3: 1, 4: 2, 5: 2, 6: 3, 7: 3, 8: 4, 9: 4, 10: 5,
}

// NoAnswer marks an unanswered item in the survey coding.
const NoAnswer = 99

// FilterReport summarizes one filtering run.
type FilterReport struct {
	Network  Network     `json:"network"`
	Input    string      `json:"input"`
	Output   string      `json:"output"`
	RowsRead int         `json:"rows_read"`
	RowsKept int         `json:"rows_kept"`
	Header   []string    `json:"header"`
	Preview  [][]float64 `json:"preview"` // First rows written
}

// PreviewRows is how many kept rows FilterReport.Preview holds.
const PreviewRows = 5

// Filter selects the base columns and the network's usage column from the
// raw survey, keeps respondents passing the filter, recodes happiness and
// writes the result to outDir/<network.CleanFile()>.
//
// Columns keep their workbook order. A row is kept when the first selected
// column equals 1, the second equals 1 and the third is not NoAnswer.
func Filter(ctx context.Context, in, outDir string, n Network) (*FilterReport, error) {
	t, err := ReadTable(in)
	if err != nil {
		return nil, err
	}

	wanted := append(append([]string{}, BaseColumns...), n.Column)
	idx := make([]int, 0, len(wanted))
	for _, name := range wanted {
		i := t.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, name, in)
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	header := make([]string, len(idx))
	recodeAt := -1
	for j, i := range idx {
		header[j] = t.Header[i]
		if strings.EqualFold(header[j], RecodeColumn) {
			recodeAt = j
		}
	}

	report := &FilterReport{
		Network:  n,
		Input:    in,
		Output:   filepath.Join(outDir, n.CleanFile()),
		RowsRead: len(t.Rows),
		Header:   header,
	}

	var kept [][]float64
	for r := range t.Rows {
		if r%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := make([]float64, len(idx))
		for j, i := range idx {
			row[j] = t.Float(r, i)
		}
		if !keepRow(row) {
			continue
		}
		if recodeAt >= 0 {
			row[recodeAt] = Recode(row[recodeAt])
		}
		kept = append(kept, row)
	}
	report.RowsKept = len(kept)
	report.Preview = kept[:min(PreviewRows, len(kept))]

	if err := WriteTable(report.Output, header, kept); err != nil {
		return nil, fmt.Errorf("write clean data: %w", err)
	}

	slog.Info("survey filtered",
		"network", n.Key,
		"column", n.Column,
		"rows_read", report.RowsRead,
		"rows_kept", report.RowsKept,
		"output", report.Output,
	)
	return report, nil
}

// keepRow applies the positional respondent filter. Blank cells never
// equal 1 and never equal NoAnswer.
func keepRow(row []float64) bool {
	return row[0] == 1 && row[1] == 1 && row[2] != NoAnswer
}

// Recode maps a 0–10 happiness answer onto 0–5. Values outside the table
// pass through unchanged.
func Recode(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if r, ok := HappinessRecode[v]; ok {
		return r
	}
	return v
}
