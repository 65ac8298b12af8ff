package persistence

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/happiness-abm/internal/calibrate"
	"github.com/talgya/happiness-abm/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveRun_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	cfg := engine.DefaultHappinessConfig()
	cfg.N = 4
	m, err := engine.NewHappinessModel(cfg)
	if err != nil {
		t.Fatalf("NewHappinessModel: %v", err)
	}
	m.Step()
	m.Step()

	run, err := NewRun(KindHappiness, "", cfg.Seed, cfg.N, cfg)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	run.Steps = m.Steps()

	if err := db.SaveRun(run, m.Collector.ModelVars(), m.Collector.AgentVars()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Kind != KindHappiness || got.Steps != 2 || got.Agents != 4 || got.Seed != cfg.Seed {
		t.Errorf("GetRun = %+v", got)
	}

	series, err := db.ModelSeries(run.ID, engine.VarMeanHappiness)
	if err != nil {
		t.Fatalf("ModelSeries: %v", err)
	}
	want := m.Collector.Series(engine.VarMeanHappiness)
	if len(series) != len(want) {
		t.Fatalf("series length = %d, want %d", len(series), len(want))
	}
	for i, p := range series {
		if p.Step != i || p.Value != want[i] {
			t.Errorf("series[%d] = %+v, want step %d value %v", i, p, i, want[i])
		}
	}

	vars, err := db.AgentVars(run.ID, 2)
	if err != nil {
		t.Fatalf("AgentVars: %v", err)
	}
	if len(vars) != 4 {
		t.Fatalf("agent vars = %d agents, want 4", len(vars))
	}
	if vars[0][engine.VarAlpha] != cfg.RelationalAlpha {
		t.Errorf("agent 0 alpha = %v, want %v", vars[0][engine.VarAlpha], cfg.RelationalAlpha)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		run, _ := NewRun(KindSocial, "IG", int64(i), 10, map[string]int{"i": i})
		if err := db.SaveRun(run, nil, nil); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d, want 2", len(runs))
	}
	if runs[0].Seed != 2 {
		t.Errorf("newest run seed = %d, want 2", runs[0].Seed)
	}
	if runs[0].Network != "IG" || runs[0].ParamsJSON != `{"i":2}` {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestGetRun_Missing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetRun missing = %v, want sql.ErrNoRows", err)
	}
}

func TestCalibrations(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveCalibration(calibrate.Result{Network: "X", R: 0.42, N: 10}); err != nil {
		t.Fatalf("SaveCalibration: %v", err)
	}
	if err := db.SaveCalibration(calibrate.Result{Network: "FB", R: -0.1, N: 12}); err != nil {
		t.Fatalf("SaveCalibration: %v", err)
	}

	cals, err := db.RecentCalibrations(10)
	if err != nil {
		t.Fatalf("RecentCalibrations: %v", err)
	}
	if len(cals) != 2 || cals[0].Network != "FB" || cals[1].R != 0.42 {
		t.Errorf("RecentCalibrations = %+v", cals)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_run", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("last_run", "b"); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMeta("last_run"); err != nil || v != "b" {
		t.Errorf("GetMeta = %q, %v", v, err)
	}
}
