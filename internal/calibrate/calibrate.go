// Package calibrate measures how well a model's happiness tracks the
// surveyed happiness of the same network.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/survey"
)

var (
	// ErrZeroVariance is returned when either series is constant.
	ErrZeroVariance = errors.New("correlation undefined: zero variance")
	// ErrTooFewSamples is returned with fewer than two paired values.
	ErrTooFewSamples = errors.New("correlation needs at least two paired values")
)

// Columns picks the compared columns by position.
type Columns struct {
	Data  int
	Model int
}

// DefaultColumns compares the third survey column with the first model column.
func DefaultColumns() Columns {
	return Columns{Data: 2, Model: 0}
}

// Result is one network's calibration.
type Result struct {
	Network string  `json:"network"`
	R       float64 `json:"r"`
	N       int     `json:"n"` // Paired rows
}

// Correlate computes the correlation coefficient between data and model.
//
// Means and sums of squares use every numeric value of each series; the
// cross-product sum uses rows where both series have a value. For series
// of equal length without blanks this is Pearson's r.
func Correlate(data, model []float64) (r float64, n int, err error) {
	meanData, okData := meanOf(data)
	meanModel, okModel := meanOf(model)
	if !okData || !okModel {
		return 0, 0, ErrTooFewSamples
	}

	var sumProducts float64
	for i := 0; i < len(data) && i < len(model); i++ {
		if math.IsNaN(data[i]) || math.IsNaN(model[i]) {
			continue
		}
		sumProducts += (data[i] - meanData) * (model[i] - meanModel)
		n++
	}
	if n < 2 {
		return 0, n, ErrTooFewSamples
	}

	denom := math.Sqrt(sumSquares(data, meanData) * sumSquares(model, meanModel))
	if denom == 0 {
		return 0, n, ErrZeroVariance
	}
	return sumProducts / denom, n, nil
}

// Calibrate correlates the selected columns of a cleaned survey workbook
// and a model workbook.
func Calibrate(ctx context.Context, network, dataPath, modelPath string, cols Columns) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("calibrating", "network", network, "data", dataPath, "model", modelPath)
	data, err := survey.ReadTable(dataPath)
	if err != nil {
		return nil, fmt.Errorf("survey data: %w", err)
	}
	model, err := survey.ReadTable(modelPath)
	if err != nil {
		return nil, fmt.Errorf("model output: %w", err)
	}
	if cols.Data >= data.Width() {
		return nil, fmt.Errorf("%w: survey column %d of %d in %s", survey.ErrMissingColumn, cols.Data, data.Width(), dataPath)
	}
	if cols.Model >= model.Width() {
		return nil, fmt.Errorf("%w: model column %d of %d in %s", survey.ErrMissingColumn, cols.Model, model.Width(), modelPath)
	}

	r, n, err := Correlate(data.Column(cols.Data), model.Column(cols.Model))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", network, err)
	}

	slog.Info("calibration", "network", network, "r", fmt.Sprintf("%.6f", r), "n", n)
	return &Result{Network: network, R: r, N: n}, nil
}

func numeric(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func meanOf(xs []float64) (float64, bool) {
	vals := numeric(xs)
	if len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}

func sumSquares(xs []float64, mean float64) float64 {
	var s float64
	for _, x := range numeric(xs) {
		d := x - mean
		s += d * d
	}
	return s
}

// Target names the workbooks compared for one network.
type Target struct {
	Network   string
	DataPath  string
	ModelPath string
}

// All calibrates each target in order. Failures do not stop later targets;
// they are joined into the returned error.
func All(ctx context.Context, targets []Target, cols Columns) ([]*Result, error) {
	var results []*Result
	var errs []error
	for _, t := range targets {
		res, err := Calibrate(ctx, t.Network, t.DataPath, t.ModelPath, cols)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
