package calibrate

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/survey"
)

func TestCorrelate_MatchesPearson(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 3, 2}
	model := []float64{2.1, 2.9, 3.2, 4.8, 4.9, 2.5, 2.4}

	got, n, err := Correlate(data, model)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	want := stat.Correlation(data, model, nil)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Correlate = %v, want %v", got, want)
	}
	if n != len(data) {
		t.Errorf("n = %d, want %d", n, len(data))
	}
}

func TestCorrelate_PerfectAndInverse(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	if r, _, _ := Correlate(x, []float64{2, 4, 6, 8}); math.Abs(r-1) > 1e-12 {
		t.Errorf("perfect correlation = %v, want 1", r)
	}
	if r, _, _ := Correlate(x, []float64{8, 6, 4, 2}); math.Abs(r+1) > 1e-12 {
		t.Errorf("inverse correlation = %v, want -1", r)
	}
}

func TestCorrelate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		data, model []float64
		want        error
	}{
		{"constant data", []float64{3, 3, 3}, []float64{1, 2, 3}, ErrZeroVariance},
		{"constant model", []float64{1, 2, 3}, []float64{4, 4, 4}, ErrZeroVariance},
		{"single pair", []float64{1}, []float64{2}, ErrTooFewSamples},
		{"empty", nil, nil, ErrTooFewSamples},
		{"all blank", []float64{math.NaN(), math.NaN()}, []float64{1, 2}, ErrTooFewSamples},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Correlate(tt.data, tt.model); !errors.Is(err, tt.want) {
				t.Errorf("Correlate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCorrelate_UnequalLengthsPairOnPrefix(t *testing.T) {
	_, n, err := Correlate([]float64{1, 2, 3, 4, 5}, []float64{1, 3, 2})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if n != 3 {
		t.Errorf("paired rows = %d, want 3", n)
	}
}

func TestCorrelate_BlanksInsideColumns(t *testing.T) {
	data := []float64{1, math.NaN(), 3, 4}
	model := []float64{2, 5, math.NaN(), 8}

	r, n, err := Correlate(data, model)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if n != 2 {
		t.Errorf("paired rows = %d, want 2", n)
	}
	// Means over each whole column: 8/3 and 5. Paired rows 0 and 3 give
	// 5 + 4 = 9; sums of squares are 14/3 and 18.
	want := 9 / math.Sqrt(14.0/3*18)
	if math.Abs(r-want) > 1e-12 {
		t.Errorf("r = %v, want %v", r, want)
	}
}

func TestCalibrate(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "3145_data_clean_X.xlsx")
	modelPath := filepath.Join(dir, "model_X.xlsx")

	data := [][]float64{{1, 1, 2, 5}, {1, 1, 4, 3}, {1, 1, 6, 1}}
	if err := survey.WriteTable(dataPath, []string{"P21A02", "P60A", "P65", "P69"}, data); err != nil {
		t.Fatal(err)
	}
	model := [][]float64{{1, 0}, {2, 0}, {3, 0}}
	if err := survey.WriteTable(modelPath, []string{"Happiness", "Sociability"}, model); err != nil {
		t.Fatal(err)
	}

	res, err := Calibrate(context.Background(), "X", dataPath, modelPath, DefaultColumns())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if math.Abs(res.R-1) > 1e-12 || res.N != 3 || res.Network != "X" {
		t.Errorf("Calibrate = %+v, want r=1 n=3", res)
	}

	if _, err := Calibrate(context.Background(), "X", dataPath, modelPath, Columns{Data: 9, Model: 0}); !errors.Is(err, survey.ErrMissingColumn) {
		t.Errorf("out-of-range column = %v, want ErrMissingColumn", err)
	}
	if _, err := Calibrate(context.Background(), "X", filepath.Join(dir, "nope.xlsx"), modelPath, DefaultColumns()); !errors.Is(err, survey.ErrNotFound) {
		t.Errorf("missing data = %v, want ErrNotFound", err)
	}
	if _, err := Calibrate(context.Background(), "X", dataPath, filepath.Join(dir, "nope.xlsx"), DefaultColumns()); !errors.Is(err, survey.ErrNotFound) {
		t.Errorf("missing model = %v, want ErrNotFound", err)
	}
}

func TestAll_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "d.xlsx")
	modelPath := filepath.Join(dir, "m.xlsx")
	if err := survey.WriteTable(dataPath, []string{"a", "b", "c"}, [][]float64{{0, 0, 1}, {0, 0, 2}}); err != nil {
		t.Fatal(err)
	}
	if err := survey.WriteTable(modelPath, []string{"h"}, [][]float64{{2}, {1}}); err != nil {
		t.Fatal(err)
	}

	targets := []Target{
		{Network: "Instagram", DataPath: filepath.Join(dir, "missing.xlsx"), ModelPath: modelPath},
		{Network: "X", DataPath: dataPath, ModelPath: modelPath},
	}
	results, err := All(context.Background(), targets, DefaultColumns())
	if !errors.Is(err, survey.ErrNotFound) {
		t.Errorf("All error = %v, want ErrNotFound joined", err)
	}
	if len(results) != 1 || results[0].Network != "X" || math.Abs(results[0].R+1) > 1e-12 {
		t.Errorf("results = %+v", results)
	}
}
