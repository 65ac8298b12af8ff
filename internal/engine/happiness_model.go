package engine

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/agents"
	"github.com/talgya/happiness-abm/internal/happiness"
)

// HappinessConfig parameterizes the time-allocation model.
type HappinessConfig struct {
	N               int     `json:"n"`
	Total           float64 `json:"total"`
	Resolution      float64 `json:"resolution"`
	RelationalAlpha float64 `json:"relational_alpha"` // First half of the population
	MaterialAlpha   float64 `json:"material_alpha"`   // Second half
	Seed            int64   `json:"seed"`
}

// DefaultHappinessConfig returns 100 agents on a 24 hour day, half
// relational (alpha 0.3) and half materialist (alpha 0.7).
func DefaultHappinessConfig() HappinessConfig {
	return HappinessConfig{
		N:               100,
		Total:           happiness.DefaultTotal,
		Resolution:      happiness.DefaultStep,
		RelationalAlpha: 0.3,
		MaterialAlpha:   0.7,
		Seed:            42,
	}
}

// HappinessModel is a population of time-allocating agents.
type HappinessModel struct {
	Config    HappinessConfig
	Agents    []*agents.TimeAgent
	Collector *DataCollector[*agents.TimeAgent]

	schedule *RandomActivation[*agents.TimeAgent]
}

// NewHappinessModel builds the population and collects the initial state.
func NewHappinessModel(cfg HappinessConfig) (*HappinessModel, error) {
	if cfg.N <= 0 {
		return nil, fmt.Errorf("agent count must be positive, got %d", cfg.N)
	}
	if cfg.Total <= 0 {
		return nil, fmt.Errorf("time budget must be positive, got %v", cfg.Total)
	}

	m := &HappinessModel{
		Config:   cfg,
		schedule: NewRandomActivation[*agents.TimeAgent](rand.New(rand.NewSource(cfg.Seed))),
	}

	for i := 0; i < cfg.N; i++ {
		alpha := cfg.MaterialAlpha
		if float64(i) < float64(cfg.N)/2 {
			alpha = cfg.RelationalAlpha
		}
		a, err := agents.NewTimeAgent(agents.AgentID(i), alpha, cfg.Total)
		if err != nil {
			return nil, fmt.Errorf("create agent %d: %w", i, err)
		}
		if cfg.Resolution > 0 {
			a.Resolution = cfg.Resolution
		}
		m.Agents = append(m.Agents, a)
		m.schedule.Add(a)
	}

	m.Collector = NewDataCollector(m.schedule.Agents, func(a *agents.TimeAgent) agents.AgentID { return a.ID }).
		ModelReporter(VarMeanHappiness, m.MeanHappiness).
		AgentReporter(VarHappiness, func(a *agents.TimeAgent) float64 { return a.Happiness }).
		AgentReporter(VarAlpha, func(a *agents.TimeAgent) float64 { return a.Alpha }).
		AgentReporter(VarRelational, func(a *agents.TimeAgent) float64 { return a.Relational }).
		AgentReporter(VarEconomic, func(a *agents.TimeAgent) float64 { return a.Economic })
	m.Collector.Collect(0)

	return m, nil
}

// Step activates every agent once, then collects.
func (m *HappinessModel) Step() {
	m.schedule.Step(func(a *agents.TimeAgent) { a.Step() })
	m.Collector.Collect(m.schedule.Steps())
}

// Steps returns the number of completed steps.
func (m *HappinessModel) Steps() int {
	return m.schedule.Steps()
}

// MeanHappiness is the population's average H.
func (m *HappinessModel) MeanHappiness() float64 {
	if len(m.Agents) == 0 {
		return 0
	}
	hs := make([]float64, len(m.Agents))
	for i, a := range m.Agents {
		hs[i] = a.Happiness
	}
	return stat.Mean(hs, nil)
}
