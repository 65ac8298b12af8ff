package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/agents"
	"github.com/talgya/happiness-abm/internal/grid"
	"github.com/talgya/happiness-abm/internal/happiness"
	"github.com/talgya/happiness-abm/internal/logging"
)

// Profile is a seed row for one social agent.
type Profile struct {
	Happiness   float64 `json:"happiness"`
	Sociability float64 `json:"sociability"`
}

// SocialConfig parameterizes the social influence model.
type SocialConfig struct {
	N         int     `json:"n"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Torus     bool    `json:"torus"`
	Threshold float64 `json:"threshold"`
	Placement string  `json:"placement"` // "uniform" or "clustered"
	Seed      int64   `json:"seed"`
}

// DefaultSocialConfig returns a 30x30 torus with 400 agents.
func DefaultSocialConfig() SocialConfig {
	return SocialConfig{
		N:         400,
		Width:     30,
		Height:    30,
		Torus:     true,
		Threshold: agents.DefaultSocialThreshold,
		Placement: "uniform",
		Seed:      42,
	}
}

// SocialModel moves agents across a grid and diffuses happiness between
// neighbours.
type SocialModel struct {
	Config    SocialConfig
	Grid      *grid.Grid[*agents.SocialAgent]
	Agents    []*agents.SocialAgent
	Collector *DataCollector[*agents.SocialAgent]

	// Synthetic is true when no profiles were supplied and agents were
	// seeded with random values.
	Synthetic bool

	rng      *rand.Rand
	schedule *RandomActivation[*agents.SocialAgent]
}

// NewSocialModel builds the model, cycling through profiles when there are
// fewer rows than agents. With no profiles, happiness and sociability are
// drawn uniformly from [0, 5).
func NewSocialModel(cfg SocialConfig, profiles []Profile) (*SocialModel, error) {
	if cfg.N <= 0 {
		return nil, fmt.Errorf("agent count must be positive, got %d", cfg.N)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("grid must be non-empty, got %dx%d", cfg.Width, cfg.Height)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &SocialModel{
		Config:   cfg,
		Grid:     grid.New[*agents.SocialAgent](cfg.Width, cfg.Height, cfg.Torus),
		rng:      rng,
		schedule: NewRandomActivation[*agents.SocialAgent](rng),
	}

	if len(profiles) == 0 {
		slog.Warn("no agent profiles supplied, using random data", "agents", cfg.N)
		m.Synthetic = true
		profiles = make([]Profile, cfg.N)
		for i := range profiles {
			profiles[i] = Profile{
				Happiness:   rng.Float64() * happiness.MaxScore,
				Sociability: rng.Float64() * happiness.MaxScore,
			}
		}
	}

	placer := grid.NewPlacer(cfg.Placement, cfg.Seed)
	for i := 0; i < cfg.N; i++ {
		p := profiles[i%len(profiles)]
		a := agents.NewSocialAgent(agents.AgentID(i), p.Happiness, p.Sociability)
		if cfg.Threshold > 0 {
			a.Threshold = cfg.Threshold
		}

		pos := placer.Place(rng, cfg.Width, cfg.Height)
		if err := m.Grid.Place(a, pos); err != nil {
			return nil, fmt.Errorf("place agent %d: %w", i, err)
		}
		a.Pos = pos

		m.Agents = append(m.Agents, a)
		m.schedule.Add(a)
	}

	m.Collector = NewDataCollector(m.schedule.Agents, func(a *agents.SocialAgent) agents.AgentID { return a.ID }).
		ModelReporter(VarMeanHappiness, m.MeanHappiness).
		ModelReporter(VarDispersion, m.Dispersion).
		AgentReporter(VarHappiness, func(a *agents.SocialAgent) float64 { return a.Happiness }).
		AgentReporter(VarSociability, func(a *agents.SocialAgent) float64 { return a.Sociability })

	return m, nil
}

// Step collects the current state, then lets every agent move and interact.
func (m *SocialModel) Step() {
	m.Collector.Collect(m.schedule.Steps())
	m.schedule.Step(func(a *agents.SocialAgent) {
		m.move(a)
		m.interact(a)
	})
}

// Steps returns the number of completed steps.
func (m *SocialModel) Steps() int {
	return m.schedule.Steps()
}

func (m *SocialModel) move(a *agents.SocialAgent) {
	cells := m.Grid.Neighborhood(a.Pos, true, false)
	cands := make([]agents.Candidate, 0, len(cells))
	for _, c := range cells {
		cands = append(cands, agents.Candidate{Pos: c, Occupants: m.Grid.Occupancy(c)})
	}

	next, ok := a.ChooseCell(cands, m.rng)
	if !ok {
		return
	}
	if err := m.Grid.Move(a, next); err != nil {
		slog.Debug("move rejected", "agent", a.ID, "to", next.String(), "error", err)
		return
	}
	from := a.Pos
	a.Pos, _ = m.Grid.PosOf(a)
	slog.Log(context.Background(), logging.LevelTrace, "agent moved",
		"agent", a.ID, "from", from.String(), "to", a.Pos.String(), "gregarious", a.Gregarious())
}

func (m *SocialModel) interact(a *agents.SocialAgent) {
	neighbors := m.Grid.Neighbors(a.Pos, true, false)
	if len(neighbors) == 0 {
		return
	}
	hs := make([]float64, len(neighbors))
	for i, n := range neighbors {
		hs[i] = n.Happiness
	}
	before := a.Happiness
	a.Influence(stat.Mean(hs, nil))
	slog.Log(context.Background(), logging.LevelTrace, "agent influenced",
		"agent", a.ID, "neighbors", len(neighbors), "from", before, "to", a.Happiness)
}

func (m *SocialModel) happinessValues() []float64 {
	hs := make([]float64, len(m.Agents))
	for i, a := range m.Agents {
		hs[i] = a.Happiness
	}
	return hs
}

// MeanHappiness is the population's average happiness.
func (m *SocialModel) MeanHappiness() float64 {
	if len(m.Agents) == 0 {
		return 0
	}
	return stat.Mean(m.happinessValues(), nil)
}

// Dispersion is the population standard deviation of happiness.
func (m *SocialModel) Dispersion() float64 {
	if len(m.Agents) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(m.happinessValues(), nil)
	if math.IsNaN(std) {
		return 0
	}
	return std
}
