package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/calibrate"
	"github.com/talgya/happiness-abm/internal/persistence"
	"github.com/talgya/happiness-abm/internal/scoring"
	"github.com/talgya/happiness-abm/internal/survey"
)

// execute runs the root command with args against a project root and
// returns its standard output.
func execute(t *testing.T, root, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--root", root))
	err := cmd.Execute()
	return out.String(), err
}

func writeRawSurvey(t *testing.T, root string) {
	t.Helper()
	header := []string{"P21A02", "P21A05", "P60A", "P65", "P69"}
	rows := [][]float64{
		{1, 1, 1, 4, 10},
		{1, 2, 1, 99, 7},
		{2, 1, 1, 2, 6},
		{1, 1, 1, 3, 3},
	}
	if err := survey.WriteTable(filepath.Join(root, "data", "3145_data.xlsx"), header, rows); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"version", "menu", "filter", "score", "calibrate", "run", "social", "runs"}
	cmds := map[string]*cobra.Command{}
	for _, c := range newRootCmd().Commands() {
		cmds[c.Name()] = c
	}
	for _, name := range want {
		if cmds[name] == nil {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestFilterThenScore(t *testing.T) {
	root := t.TempDir()
	writeRawSurvey(t, root)

	out, err := execute(t, root, "", "filter", "x")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !strings.Contains(out, "kept 2 of 4 rows") {
		t.Errorf("filter output:\n%s", out)
	}
	clean := filepath.Join(root, "clean_data", "3145_data_clean_X.xlsx")
	if _, err := os.Stat(clean); err != nil {
		t.Fatalf("clean file: %v", err)
	}

	if _, err := execute(t, root, "", "score", "X"); err != nil {
		t.Fatalf("score: %v", err)
	}
	profiles, err := scoring.LoadProfiles(filepath.Join(root, "clean_data", "model_X.xlsx"))
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("profiles = %d, want 2", len(profiles))
	}
}

func TestFilterScoreCalibrate(t *testing.T) {
	root := t.TempDir()
	writeRawSurvey(t, root)

	for _, args := range [][]string{{"filter", "X"}, {"score", "X"}} {
		if _, err := execute(t, root, "", args...); err != nil {
			t.Fatalf("%s: %v", args[0], err)
		}
	}

	out, err := execute(t, root, "", "calibrate", "X", "--json", "--no-store")
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	var results []calibrate.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	// Kept rows answer P65 = 4, 3 and P69 = 10, 3; the higher happiness
	// answer scores higher.
	if len(results) != 1 || results[0].N != 2 || results[0].R < 0.999999 {
		t.Errorf("results = %+v, want one perfect correlation over 2 rows", results)
	}
}

func TestFilter_MissingRawFile(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "filter", "IG")
	if !errors.Is(err, survey.ErrNotFound) {
		t.Errorf("filter without data = %v, want ErrNotFound", err)
	}
}

func TestFilter_UnknownNetwork(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "filter", "myspace")
	if !errors.Is(err, survey.ErrUnknownNetwork) {
		t.Errorf("filter unknown = %v, want ErrUnknownNetwork", err)
	}
}

func TestCalibrateCmd_RecordsResult(t *testing.T) {
	root := t.TempDir()
	clean := filepath.Join(root, "clean_data")
	if err := survey.WriteTable(filepath.Join(clean, "3145_data_clean_IG.xlsx"),
		[]string{"P21A05", "P60A", "P65", "P69"},
		[][]float64{{1, 1, 1, 2}, {1, 1, 2, 3}, {1, 1, 3, 3}, {1, 1, 4, 5}},
	); err != nil {
		t.Fatal(err)
	}
	if err := survey.WriteTable(filepath.Join(clean, "model_IG.xlsx"),
		scoring.ModelHeader,
		[][]float64{{2, 1, 0, 0, 0}, {4, 1, 0, 0, 0}, {6, 1, 0, 0, 0}, {8, 1, 0, 0, 0}},
	); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, root, "", "calibrate", "IG", "--json")
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	var results []calibrate.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(results) != 1 || results[0].N != 4 || results[0].R < 0.999999 {
		t.Errorf("results = %+v, want one perfect correlation", results)
	}

	db, err := persistence.Open(filepath.Join(root, "data", "happysim.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	cals, err := db.RecentCalibrations(5)
	if err != nil || len(cals) != 1 {
		t.Errorf("stored calibrations = %+v, %v", cals, err)
	}
	if last, err := db.GetMeta(metaLastCalibration); err != nil || !strings.Contains(last, "r=1.000000") {
		t.Errorf("last calibration meta = %q, %v", last, err)
	}
}

func TestCalibrateCmd_AllReportsMissingFiles(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "calibrate", "all", "--no-store")
	if !errors.Is(err, survey.ErrNotFound) {
		t.Errorf("calibrate all = %v, want ErrNotFound", err)
	}
}

func TestRunCmd(t *testing.T) {
	root := t.TempDir()
	export := filepath.Join(root, "out", "agents.xlsx")

	out, err := execute(t, root, "", "run", "--agents", "4", "--steps", "2", "--export", export, "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var res happinessResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Steps != 2 || len(res.Final) != 4 || len(res.Model) != 3 {
		t.Errorf("result steps=%d final=%d model=%d", res.Steps, len(res.Final), len(res.Model))
	}
	if res.RunID == "" {
		t.Error("run was not saved")
	}
	if len(res.Histograms) != 2 {
		t.Errorf("histograms = %d, want one per alpha", len(res.Histograms))
	}

	tbl, err := survey.ReadTable(export)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(tbl.Rows) != 4 {
		t.Errorf("exported rows = %d", len(tbl.Rows))
	}

	out, err = execute(t, root, "", "runs", "--json")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var listing struct {
		Runs []persistence.Run `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(listing.Runs) != 1 || listing.Runs[0].ID != res.RunID {
		t.Errorf("runs = %+v", listing.Runs)
	}

	db, err := persistence.Open(filepath.Join(root, "data", "happysim.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if last, err := db.GetMeta(metaLastRun); err != nil || last != res.RunID {
		t.Errorf("last run meta = %q, %v; want %q", last, err, res.RunID)
	}
}

func TestRunCmd_NegativeSample(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "run", "--no-store", "--steps", "1", "--sample", "-1")
	if err == nil || !strings.Contains(err.Error(), "--sample") {
		t.Errorf("run --sample -1 = %v, want a flag error", err)
	}
}

func TestRunCmd_TextOutput(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "run", "--agents", "6", "--steps", "1", "--no-store")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Mean happiness per step", "Final agent results", "alpha = 0.30", "alpha = 0.70"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSocialCmd_Headless(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "social", "FB", "--steps", "3", "--json", "--no-store")
	if err != nil {
		t.Fatalf("social: %v", err)
	}
	var res struct {
		Steps     int  `json:"steps"`
		Synthetic bool `json:"synthetic"`
		Model     []struct {
			Step int `json:"step"`
		} `json:"model"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Steps != 3 || !res.Synthetic || len(res.Model) != 4 {
		t.Errorf("social result = %+v", res)
	}
}

func TestMenu_RunsModelAndExits(t *testing.T) {
	out, err := execute(t, t.TempDir(), "7\n5\n0\n", "--no-store")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	for _, want := range []string{"Invalid option", "Mean happiness per step", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("menu output missing %q", want)
		}
	}
}

func TestMenu_SubmenuErrorsContinue(t *testing.T) {
	out, err := execute(t, t.TempDir(), "3\n1\n5\n0\n", "menu", "--no-store")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if !strings.Contains(out, "Error: ") || !strings.Contains(out, "Goodbye!") {
		t.Errorf("menu output:\n%s", out)
	}
}

func TestMenu_SocialBack(t *testing.T) {
	out, err := execute(t, t.TempDir(), "4\n9\n0\n0\n", "menu", "--no-store")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	for _, want := range []string{"Social dynamics simulation", "Invalid option", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("menu output missing %q:\n%s", want, out)
		}
	}
}

func TestMenu_EOFIsClean(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "1\n", "menu", "--no-store"); err != nil {
		t.Errorf("menu on EOF = %v, want nil", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "happysim.yaml"), []byte("social:\n  placement: spiral\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, root, "", "version"); err == nil {
		t.Error("expected invalid config error")
	}
}
