// Package config provides configuration loading for happysim.
// Values are layered: defaults, then a YAML file, then a .env file, then
// HAPPYSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root.
const FileName = "happysim.yaml"

// Config contains all happysim settings.
type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Social      SocialConfig      `yaml:"social"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// PathsConfig locates the spreadsheets and the run store. Relative paths are
// resolved against Root.
type PathsConfig struct {
	Root     string `yaml:"root"`
	DataDir  string `yaml:"data_dir"`
	CleanDir string `yaml:"clean_dir"`
	RawFile  string `yaml:"raw_file"`
	Database string `yaml:"database"`
}

// SimulationConfig parameterizes the time-allocation model.
type SimulationConfig struct {
	Agents          int     `yaml:"agents"`
	Steps           int     `yaml:"steps"`
	TotalHours      float64 `yaml:"total_hours"`
	Resolution      float64 `yaml:"resolution"`
	RelationalAlpha float64 `yaml:"relational_alpha"`
	MaterialAlpha   float64 `yaml:"material_alpha"`
	Seed            int64   `yaml:"seed"` // 0 draws a random seed
}

// SocialConfig parameterizes the social influence model.
type SocialConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Torus     bool    `yaml:"torus"`
	Threshold float64 `yaml:"threshold"`
	Placement string  `yaml:"placement"`
	Steps     int     `yaml:"steps"`
	Seed      int64   `yaml:"seed"`
}

// ScoringConfig controls how survey rows become model agents.
type ScoringConfig struct {
	AlphaColumn string  `yaml:"alpha_column"` // Clean survey column read as alpha; empty uses the network column
	AlphaMin    float64 `yaml:"alpha_min"`    // Answer mapped to alpha 0
	AlphaMax    float64 `yaml:"alpha_max"`    // Answer mapped to alpha 1
}

// CalibrationConfig selects the compared columns by position.
type CalibrationConfig struct {
	DataColumn  int `yaml:"data_column"`
	ModelColumn int `yaml:"model_column"`
}

// ServerConfig configures the grid visualization server.
type ServerConfig struct {
	Host         string          `yaml:"host"`
	Port         int             `yaml:"port"`
	StepInterval time.Duration   `yaml:"step_interval"`
	CORSOrigins  []string        `yaml:"cors_origins"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits control requests per client.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig configures log verbosity.
type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace".
	Level string `yaml:"level"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:     ".",
			DataDir:  "data",
			CleanDir: "clean_data",
			RawFile:  "3145_data.xlsx",
			Database: filepath.Join("data", "happysim.db"),
		},
		Simulation: SimulationConfig{
			Agents:          100,
			Steps:           10,
			TotalHours:      24,
			Resolution:      0.1,
			RelationalAlpha: 0.3,
			MaterialAlpha:   0.7,
			Seed:            42,
		},
		Social: SocialConfig{
			Width:     30,
			Height:    30,
			Torus:     true,
			Threshold: 2.0,
			Placement: "uniform",
			Steps:     100,
			Seed:      42,
		},
		Scoring: ScoringConfig{
			AlphaColumn: "P69",
			AlphaMin:    0,
			AlphaMax:    5,
		},
		Calibration: CalibrationConfig{
			DataColumn:  2,
			ModelColumn: 0,
		},
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8521,
			StepInterval: 500 * time.Millisecond,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration for a project root. An explicit path must
// exist; otherwise <root>/happysim.yaml is read when present.
func Load(root, path string) (*Config, error) {
	if root == "" {
		root = "."
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	if _, err := os.Stat(path); err == nil {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.Paths.Root = root

	// .env never overrides variables already set in the environment.
	envPath := filepath.Join(root, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Agents <= 0 {
		return fmt.Errorf("simulation.agents must be positive, got %d", s.Agents)
	}
	if s.Steps < 0 {
		return fmt.Errorf("simulation.steps must be non-negative, got %d", s.Steps)
	}
	if s.TotalHours <= 0 {
		return fmt.Errorf("simulation.total_hours must be positive, got %v", s.TotalHours)
	}
	if s.Resolution <= 0 || s.Resolution > s.TotalHours {
		return fmt.Errorf("simulation.resolution must be in (0, total_hours], got %v", s.Resolution)
	}
	for name, a := range map[string]float64{"relational_alpha": s.RelationalAlpha, "material_alpha": s.MaterialAlpha} {
		if a < 0 || a > 1 {
			return fmt.Errorf("simulation.%s must be between 0 and 1, got %v", name, a)
		}
	}

	if c.Social.Width <= 0 || c.Social.Height <= 0 {
		return fmt.Errorf("social grid must be non-empty, got %dx%d", c.Social.Width, c.Social.Height)
	}
	if c.Social.Placement != "uniform" && c.Social.Placement != "clustered" {
		return fmt.Errorf("invalid placement: %s (valid: uniform, clustered)", c.Social.Placement)
	}

	if !(c.Scoring.AlphaMax > c.Scoring.AlphaMin) {
		return fmt.Errorf("scoring.alpha_max must exceed alpha_min, got %v..%v", c.Scoring.AlphaMin, c.Scoring.AlphaMax)
	}
	if c.Calibration.DataColumn < 0 || c.Calibration.ModelColumn < 0 {
		return fmt.Errorf("calibration columns must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerSecond <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// Resolve joins a configured path onto the project root unless absolute.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Paths.Root, path)
}

// RawPath is the uncleaned survey workbook.
func (c *Config) RawPath() string {
	return filepath.Join(c.Resolve(c.Paths.DataDir), c.Paths.RawFile)
}

// CleanPath is a file inside the cleaned data directory.
func (c *Config) CleanPath(name string) string {
	return filepath.Join(c.Resolve(c.Paths.CleanDir), name)
}

// DatabasePath is the SQLite run store.
func (c *Config) DatabasePath() string {
	return c.Resolve(c.Paths.Database)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HAPPYSIM_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("HAPPYSIM_CLEAN_DIR"); v != "" {
		cfg.Paths.CleanDir = v
	}
	if v := os.Getenv("HAPPYSIM_DB"); v != "" {
		cfg.Paths.Database = v
	}
	if v := os.Getenv("HAPPYSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
			cfg.Social.Seed = n
		}
	}
	if v := os.Getenv("HAPPYSIM_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Agents = n
		}
	}
	if v := os.Getenv("HAPPYSIM_PLACEMENT"); v != "" {
		cfg.Social.Placement = v
	}
	if v := os.Getenv("HAPPYSIM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("HAPPYSIM_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("HAPPYSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
