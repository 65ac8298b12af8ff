// Package scoring turns cleaned survey respondents into model agents: one
// survey answer per respondent sets a materialist predisposition, and the
// Cobb-Douglas optimum for that predisposition is the model's happiness.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/engine"
	"github.com/talgya/happiness-abm/internal/happiness"
	"github.com/talgya/happiness-abm/internal/survey"
)

// ErrAlphaRange is returned for an answer outside the configured scale.
var ErrAlphaRange = errors.New("answer out of range")

// Model workbook columns. Happiness and Sociability come first: the social
// simulation and calibration read them by position.
var ModelHeader = []string{"Happiness", "Sociability", "Alpha", "Relational", "Economic"}

// Options controls scoring.
type Options struct {
	Total float64 // Daily time budget in hours

	// AlphaColumn names the clean survey column alpha is read from. Empty
	// means the network's own usage column.
	AlphaColumn string
	AlphaMin    float64 // Answer mapped to alpha 0
	AlphaMax    float64 // Answer mapped to alpha 1
}

// DefaultOptions scores on a 24 hour day from the recoded 0-5 happiness
// answer.
func DefaultOptions() Options {
	return Options{
		Total:       happiness.DefaultTotal,
		AlphaColumn: survey.RecodeColumn,
		AlphaMin:    0,
		AlphaMax:    happiness.MaxScore,
	}
}

// Report summarizes a scoring run.
type Report struct {
	Network   survey.Network `json:"network"`
	Input     string         `json:"input"`
	Output    string         `json:"output"`
	Rows      int            `json:"rows"`
	Skipped   int            `json:"skipped"`
	MeanScore float64        `json:"mean_score"`
}

// Alpha maps an answer on the lo..hi scale onto [0, 1]: lo is purely
// relational and hi purely materialist.
func Alpha(v, lo, hi float64) (float64, error) {
	if !(hi > lo) {
		return 0, fmt.Errorf("alpha scale %v..%v is empty", lo, hi)
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, fmt.Errorf("%w: %v not in %v..%v", ErrAlphaRange, v, lo, hi)
	}
	return happiness.Clamp((v-lo)/(hi-lo), 0, 1), nil
}

// ScoreNetwork reads the cleaned survey for n and writes one model row per
// respondent whose answer lies on the alpha scale.
func ScoreNetwork(ctx context.Context, cleanPath, modelPath string, n survey.Network, opts Options) (*Report, error) {
	t, err := survey.ReadTable(cleanPath)
	if err != nil {
		return nil, err
	}
	source := opts.AlphaColumn
	if source == "" {
		source = n.Column
	}
	col := t.Index(source)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s in %s", survey.ErrMissingColumn, source, cleanPath)
	}

	report := &Report{Network: n, Input: cleanPath, Output: modelPath}
	var rows [][]float64
	var scores []float64
	for r := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		alpha, err := Alpha(t.Float(r, col), opts.AlphaMin, opts.AlphaMax)
		if err != nil {
			report.Skipped++
			slog.Debug("respondent skipped", "row", r+2, "error", err)
			continue
		}

		opt := happiness.Optimum(alpha, opts.Total)
		score := happiness.Score(alpha, opts.Total)
		sociability := happiness.MaxScore * (1 - alpha)
		rows = append(rows, []float64{score, sociability, alpha, opt.Relational, opt.Economic})
		scores = append(scores, score)
	}
	report.Rows = len(rows)
	if len(scores) > 0 {
		report.MeanScore = stat.Mean(scores, nil)
	}

	if err := survey.WriteTable(modelPath, ModelHeader, rows); err != nil {
		return nil, fmt.Errorf("write model: %w", err)
	}

	slog.Info("network scored",
		"network", n.Key,
		"alpha_column", source,
		"rows", report.Rows,
		"skipped", report.Skipped,
		"mean_score", fmt.Sprintf("%.3f", report.MeanScore),
		"output", modelPath,
	)
	return report, nil
}

// LoadProfiles reads social agent seeds from a model workbook: happiness in
// the first column and sociability in the second. Rows with a blank or
// non-numeric value in either are skipped.
func LoadProfiles(path string) ([]engine.Profile, error) {
	t, err := survey.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if t.Width() < 2 {
		return nil, fmt.Errorf("%w: %s needs happiness and sociability columns", survey.ErrMissingColumn, path)
	}

	profiles := make([]engine.Profile, 0, len(t.Rows))
	for r := range t.Rows {
		h, s := t.Float(r, 0), t.Float(r, 1)
		if math.IsNaN(h) || math.IsNaN(s) {
			continue
		}
		profiles = append(profiles, engine.Profile{Happiness: h, Sociability: s})
	}
	return profiles, nil
}
