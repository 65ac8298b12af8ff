package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Simulation.Agents != 100 {
		t.Errorf("expected 100 agents, got %d", cfg.Simulation.Agents)
	}
	if cfg.Simulation.TotalHours != 24 {
		t.Errorf("expected 24 total hours, got %v", cfg.Simulation.TotalHours)
	}
	if cfg.Social.Threshold != 2.0 {
		t.Errorf("expected social threshold 2.0, got %v", cfg.Social.Threshold)
	}
	if cfg.Server.Port != 8521 {
		t.Errorf("expected port 8521, got %d", cfg.Server.Port)
	}
	if cfg.Calibration.DataColumn != 2 || cfg.Calibration.ModelColumn != 0 {
		t.Errorf("expected calibration columns 2/0, got %d/%d", cfg.Calibration.DataColumn, cfg.Calibration.ModelColumn)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	configContent := `
simulation:
  agents: 50
  steps: 3
social:
  placement: clustered
  width: 20
scoring:
  alpha_column: P21A02
  alpha_min: 1
server:
  port: 9000
  step_interval: 250ms
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Simulation.Agents != 50 || cfg.Simulation.Steps != 3 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.TotalHours != 24 {
		t.Errorf("unset fields should keep defaults, total_hours = %v", cfg.Simulation.TotalHours)
	}
	if cfg.Social.Placement != "clustered" || cfg.Social.Width != 20 || cfg.Social.Height != 30 {
		t.Errorf("social = %+v", cfg.Social)
	}
	if cfg.Scoring.AlphaColumn != "P21A02" || cfg.Scoring.AlphaMin != 1 || cfg.Scoring.AlphaMax != 5 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Server.Port != 9000 || cfg.Server.StepInterval != 250*time.Millisecond {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("simulation: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_RootFileEnvAndOverrides(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("simulation:\n  agents: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("HAPPYSIM_PORT=9100\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HAPPYSIM_PORT", "")
	os.Unsetenv("HAPPYSIM_PORT")
	t.Setenv("HAPPYSIM_SEED", "99")
	t.Setenv("HAPPYSIM_CORS_ORIGINS", "http://a.example, ,http://b.example")

	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Simulation.Agents != 7 {
		t.Errorf("file value not applied, agents = %d", cfg.Simulation.Agents)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf(".env value not applied, port = %d", cfg.Server.Port)
	}
	if cfg.Simulation.Seed != 99 || cfg.Social.Seed != 99 {
		t.Errorf("seed override not applied: %d/%d", cfg.Simulation.Seed, cfg.Social.Seed)
	}
	if strings.Join(cfg.Server.CORSOrigins, "|") != "http://a.example|http://b.example" {
		t.Errorf("CORS origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Paths.Root != root {
		t.Errorf("root = %s, want %s", cfg.Paths.Root, root)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(t.TempDir(), "/nonexistent/happysim.yaml"); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero agents", func(c *Config) { c.Simulation.Agents = 0 }, "agents"},
		{"bad alpha", func(c *Config) { c.Simulation.MaterialAlpha = 1.2 }, "material_alpha"},
		{"bad resolution", func(c *Config) { c.Simulation.Resolution = 0 }, "resolution"},
		{"bad placement", func(c *Config) { c.Social.Placement = "spiral" }, "placement"},
		{"empty alpha scale", func(c *Config) { c.Scoring.AlphaMax = c.Scoring.AlphaMin }, "alpha_max"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = "/proj"

	if got := cfg.RawPath(); got != filepath.Join("/proj", "data", "3145_data.xlsx") {
		t.Errorf("RawPath = %s", got)
	}
	if got := cfg.CleanPath("x.xlsx"); got != filepath.Join("/proj", "clean_data", "x.xlsx") {
		t.Errorf("CleanPath = %s", got)
	}
	cfg.Paths.Database = "/abs/run.db"
	if got := cfg.DatabasePath(); got != "/abs/run.db" {
		t.Errorf("DatabasePath = %s", got)
	}
}
