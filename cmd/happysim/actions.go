package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/happiness-abm/internal/api"
	"github.com/talgya/happiness-abm/internal/calibrate"
	"github.com/talgya/happiness-abm/internal/config"
	"github.com/talgya/happiness-abm/internal/engine"
	"github.com/talgya/happiness-abm/internal/entropy"
	"github.com/talgya/happiness-abm/internal/persistence"
	"github.com/talgya/happiness-abm/internal/scoring"
	"github.com/talgya/happiness-abm/internal/survey"
)

// Meta keys written to the run store.
const (
	metaLastRun         = "last_run"
	metaLastCalibration = "last_calibration"
)

// calibrationOrder is the order networks are calibrated in by "all".
var calibrationOrder = []string{"IG", "X", "FB"}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func filterNetwork(ctx context.Context, cfg *config.Config, n survey.Network, w io.Writer, jsonOut bool) error {
	if !jsonOut {
		fmt.Fprintf(w, "\n--- Processing %s data (column %s) ---\n", n.Name, n.Column)
	}

	report, err := survey.Filter(ctx, cfg.RawPath(), cfg.Resolve(cfg.Paths.CleanDir), n)
	if err != nil {
		if errors.Is(err, survey.ErrNotFound) {
			return fmt.Errorf("%w\nmake sure %s is in %s", err, cfg.Paths.RawFile, cfg.Resolve(cfg.Paths.DataDir))
		}
		return err
	}
	if jsonOut {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "Processing complete: kept %s of %s rows.\n",
		humanize.Comma(int64(report.RowsKept)), humanize.Comma(int64(report.RowsRead)))
	fmt.Fprintf(w, "%s\n", strings.Join(report.Header, "\t"))
	for _, row := range report.Preview {
		fmt.Fprintln(w, formatRow(row))
	}
	fmt.Fprintf(w, "Saved to %s\n", report.Output)
	return nil
}

func scoreNetwork(ctx context.Context, cfg *config.Config, n survey.Network, w io.Writer, jsonOut bool) error {
	opts := scoring.Options{
		Total:       cfg.Simulation.TotalHours,
		AlphaColumn: cfg.Scoring.AlphaColumn,
		AlphaMin:    cfg.Scoring.AlphaMin,
		AlphaMax:    cfg.Scoring.AlphaMax,
	}
	report, err := scoring.ScoreNetwork(ctx, cfg.CleanPath(n.CleanFile()), cfg.CleanPath(n.ModelFile()), n, opts)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "Scored %s respondents for %s (%d skipped), mean happiness %.3f.\n",
		humanize.Comma(int64(report.Rows)), n.Name, report.Skipped, report.MeanScore)
	fmt.Fprintf(w, "Saved to %s\n", report.Output)
	return nil
}

func calibrationTargets(cfg *config.Config, nets []survey.Network) []calibrate.Target {
	targets := make([]calibrate.Target, len(nets))
	for i, n := range nets {
		targets[i] = calibrate.Target{
			Network:   n.Name,
			DataPath:  cfg.CleanPath(n.CleanFile()),
			ModelPath: cfg.CleanPath(n.ModelFile()),
		}
	}
	return targets
}

// calibrateNetworks correlates each network's survey with its model file
// and records the results when db is not nil. A failing network does not
// stop the others.
func calibrateNetworks(ctx context.Context, cfg *config.Config, db *persistence.DB, nets []survey.Network, w io.Writer, jsonOut bool) error {
	cols := calibrate.Columns{Data: cfg.Calibration.DataColumn, Model: cfg.Calibration.ModelColumn}

	results, err := calibrate.All(ctx, calibrationTargets(cfg, nets), cols)
	for _, res := range results {
		if db != nil {
			if serr := db.SaveCalibration(*res); serr != nil {
				slog.Warn("calibration not saved", "network", res.Network, "error", serr)
			}
		}
	}
	if db != nil && len(results) > 0 {
		last := results[len(results)-1]
		if serr := db.SaveMeta(metaLastCalibration, fmt.Sprintf("%s r=%.6f", last.Network, last.R)); serr != nil {
			slog.Warn("run meta not saved", "key", metaLastCalibration, "error", serr)
		}
	}

	if jsonOut {
		if results == nil {
			results = []*calibrate.Result{}
		}
		if jerr := writeJSON(w, results); jerr != nil {
			return jerr
		}
		return err
	}

	for _, res := range results {
		fmt.Fprintf(w, "The correlation coefficient for %s is: %.6f (%d pairs)\n", res.Network, res.R, res.N)
	}
	return err
}

func networksFor(keys []string) ([]survey.Network, error) {
	nets := make([]survey.Network, 0, len(keys))
	for _, k := range keys {
		n, err := survey.Lookup(k)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// happinessResult is the JSON form of a time-allocation run.
type happinessResult struct {
	RunID      string             `json:"run_id,omitempty"`
	Seed       int64              `json:"seed"`
	Steps      int                `json:"steps"`
	Model      []engine.ModelRow  `json:"model"`
	Final      []engine.AgentRow  `json:"final"`
	Histograms []engine.Histogram `json:"histograms"`
}

// runOptions controls a time-allocation run.
type runOptions struct {
	Agents int
	Steps  int
	Total  float64
	Bins   int
	Export string
	Sample int
}

func runHappiness(ctx context.Context, cfg *config.Config, db *persistence.DB, opts runOptions, w io.Writer, jsonOut bool) (*engine.HappinessModel, error) {
	hc := engine.HappinessConfig{
		N:               opts.Agents,
		Total:           opts.Total,
		Resolution:      cfg.Simulation.Resolution,
		RelationalAlpha: cfg.Simulation.RelationalAlpha,
		MaterialAlpha:   cfg.Simulation.MaterialAlpha,
		Seed:            entropy.ResolveSeed(cfg.Simulation.Seed),
	}
	m, err := engine.NewHappinessModel(hc)
	if err != nil {
		return nil, err
	}

	for i := 0; i < opts.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.Step()
	}

	final := m.Collector.AgentVarsAt(m.Steps())
	sort.Slice(final, func(i, j int) bool { return final[i].AgentID < final[j].AgentID })
	result := happinessResult{
		Seed:       hc.Seed,
		Steps:      m.Steps(),
		Model:      m.Collector.ModelVars(),
		Final:      final,
		Histograms: engine.HistogramsByAlpha(final, opts.Bins),
	}

	if opts.Export != "" {
		if err := exportAgents(opts.Export, final); err != nil {
			return nil, err
		}
		slog.Info("final agent state exported", "path", opts.Export, "agents", len(final))
	}

	if db != nil {
		run, err := persistence.NewRun(persistence.KindHappiness, "", hc.Seed, hc.N, hc)
		if err != nil {
			return nil, err
		}
		run.Steps = m.Steps()
		if err := db.SaveRun(run, m.Collector.ModelVars(), m.Collector.AgentVars()); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		if err := db.SaveMeta(metaLastRun, run.ID); err != nil {
			slog.Warn("run meta not saved", "key", metaLastRun, "error", err)
		}
		result.RunID = run.ID
	}

	if jsonOut {
		return m, writeJSON(w, result)
	}

	fmt.Fprintln(w, "--- Mean happiness per step ---")
	fmt.Fprintf(w, "%6s  %s\n", "Step", engine.VarMeanHappiness)
	for _, row := range result.Model[:min(5, len(result.Model))] {
		fmt.Fprintf(w, "%6d  %.6f\n", row.Step, row.Values[engine.VarMeanHappiness])
	}

	fmt.Fprintln(w, "\n--- Final agent results (sample) ---")
	fmt.Fprintf(w, "%6s  %6s  %10s  %10s  %10s\n", "Agent", engine.VarAlpha, engine.VarHappiness, engine.VarRelational, engine.VarEconomic)
	for _, row := range final[:min(max(opts.Sample, 0), len(final))] {
		fmt.Fprintf(w, "%6d  %6.2f  %10.4f  %10.1f  %10.1f\n", row.AgentID,
			row.Values[engine.VarAlpha], row.Values[engine.VarHappiness],
			row.Values[engine.VarRelational], row.Values[engine.VarEconomic])
	}

	fmt.Fprintln(w, "\n--- Happiness distribution by alpha ---")
	for _, h := range result.Histograms {
		writeHistogram(w, h)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "\nRun saved as %s\n", result.RunID)
	}
	return m, nil
}

func exportAgents(path string, rows []engine.AgentRow) error {
	header := []string{"AgentID", engine.VarAlpha, engine.VarHappiness, engine.VarRelational, engine.VarEconomic}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = []float64{
			float64(r.AgentID),
			r.Values[engine.VarAlpha],
			r.Values[engine.VarHappiness],
			r.Values[engine.VarRelational],
			r.Values[engine.VarEconomic],
		}
	}
	if err := survey.WriteTable(path, header, out); err != nil {
		return fmt.Errorf("export agents: %w", err)
	}
	return nil
}

func writeHistogram(w io.Writer, h engine.Histogram) {
	fmt.Fprintf(w, "alpha = %.2f\n", h.Alpha)
	for i, c := range h.Counts {
		fmt.Fprintf(w, "  [%8.4f, %8.4f)  %4d  %s\n", h.Dividers[i], h.Dividers[i+1], int(c), strings.Repeat("#", int(c)))
	}
}

// socialOptions controls a social dynamics run.
type socialOptions struct {
	Steps int
	Serve bool
	Addr  string
}

func socialConfig(cfg *config.Config, n survey.Network) engine.SocialConfig {
	return engine.SocialConfig{
		N:         n.Agents,
		Width:     cfg.Social.Width,
		Height:    cfg.Social.Height,
		Torus:     cfg.Social.Torus,
		Threshold: cfg.Social.Threshold,
		Placement: cfg.Social.Placement,
		Seed:      entropy.ResolveSeed(cfg.Social.Seed),
	}
}

// loadProfiles reads the network's model workbook. Any read failure falls
// back to random agents.
func loadProfiles(cfg *config.Config, n survey.Network) []engine.Profile {
	path := cfg.CleanPath(n.ModelFile())
	slog.Info("loading agent profiles", "path", path)
	profiles, err := scoring.LoadProfiles(path)
	if err != nil {
		slog.Warn("could not read agent profiles, using random data", "path", path, "error", err)
		return nil
	}
	return profiles
}

func runSocial(ctx context.Context, cfg *config.Config, db *persistence.DB, n survey.Network, opts socialOptions, w io.Writer, jsonOut bool) error {
	sc := socialConfig(cfg, n)
	profiles := loadProfiles(cfg, n)
	factory := func() (*engine.SocialModel, error) {
		return engine.NewSocialModel(sc, profiles)
	}

	if opts.Serve {
		return serveSocial(ctx, cfg, n, factory, opts.Addr, w)
	}

	m, err := factory()
	if err != nil {
		return err
	}
	for i := 0; i < opts.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Step()
	}
	// Record the final state as well.
	m.Collector.Collect(m.Steps())

	var runID string
	if db != nil {
		run, err := persistence.NewRun(persistence.KindSocial, n.Key, sc.Seed, sc.N, sc)
		if err != nil {
			return err
		}
		run.Steps = m.Steps()
		if err := db.SaveRun(run, m.Collector.ModelVars(), m.Collector.AgentVars()); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := db.SaveMeta(metaLastRun, run.ID); err != nil {
			slog.Warn("run meta not saved", "key", metaLastRun, "error", err)
		}
		runID = run.ID
	}

	if jsonOut {
		return writeJSON(w, map[string]any{
			"run_id":    runID,
			"network":   n.Key,
			"seed":      sc.Seed,
			"steps":     m.Steps(),
			"synthetic": m.Synthetic,
			"model":     m.Collector.ModelVars(),
		})
	}

	fmt.Fprintf(w, "\nSocial dynamics for %s: %d agents on a %dx%d grid, %d steps.\n",
		n.Name, sc.N, sc.Width, sc.Height, m.Steps())
	if m.Synthetic {
		fmt.Fprintln(w, "No model data found, agents were seeded randomly.")
	}
	series := m.Collector.Series(engine.VarMeanHappiness)
	disp := m.Collector.Series(engine.VarDispersion)
	fmt.Fprintf(w, "Mean happiness %.4f -> %.4f, dispersion %.4f -> %.4f\n",
		series[0], series[len(series)-1], disp[0], disp[len(disp)-1])
	if runID != "" {
		fmt.Fprintf(w, "Run saved as %s\n", runID)
	}
	return nil
}

func serveSocial(ctx context.Context, cfg *config.Config, n survey.Network, factory api.ModelFactory, addr string, w io.Writer) error {
	opts := api.DefaultOptions()
	opts.Addr = addr
	if opts.Addr == "" {
		opts.Addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	opts.Title = "Social dynamics: " + n.Name
	opts.StepInterval = cfg.Server.StepInterval
	opts.CORSOrigins = cfg.Server.CORSOrigins
	opts.RateLimit = api.RateLimitConfig{
		Enabled:           cfg.Server.RateLimit.Enabled,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	}

	srv, err := api.NewServer(factory, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nStarting %s... open http://%s in a browser (Ctrl-C to stop).\n", n.Name, opts.Addr)
	return srv.ListenAndServe(ctx)
}

func formatRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = humanize.Ftoa(v)
	}
	return strings.Join(parts, "\t")
}
