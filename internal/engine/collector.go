package engine

import (
	"github.com/talgya/happiness-abm/internal/agents"
)

// Reporter names shared by both models.
const (
	VarMeanHappiness = "MeanHappiness"
	VarDispersion    = "Dispersion"
	VarHappiness     = "Happiness"
	VarSociability   = "Sociability"
	VarAlpha         = "Alpha"
	VarRelational    = "Relational"
	VarEconomic      = "Economic"
)

// ModelRow is one step of model-level reporters.
type ModelRow struct {
	Step   int                `json:"step"`
	Values map[string]float64 `json:"values"`
}

// AgentRow is one agent's reporters at one step.
type AgentRow struct {
	Step    int                `json:"step"`
	AgentID agents.AgentID     `json:"agent_id"`
	Values  map[string]float64 `json:"values"`
}

type namedModelReporter struct {
	name string
	fn   func() float64
}

type namedAgentReporter[T any] struct {
	name string
	fn   func(T) float64
}

// DataCollector records model and agent reporters each time Collect runs.
type DataCollector[T any] struct {
	source func() []T
	idOf   func(T) agents.AgentID

	modelReporters []namedModelReporter
	agentReporters []namedAgentReporter[T]

	modelRows []ModelRow
	agentRows []AgentRow
}

// NewDataCollector creates a collector reading agents from source.
func NewDataCollector[T any](source func() []T, idOf func(T) agents.AgentID) *DataCollector[T] {
	return &DataCollector[T]{source: source, idOf: idOf}
}

// ModelReporter registers a model-level variable.
func (c *DataCollector[T]) ModelReporter(name string, fn func() float64) *DataCollector[T] {
	c.modelReporters = append(c.modelReporters, namedModelReporter{name: name, fn: fn})
	return c
}

// AgentReporter registers a per-agent variable.
func (c *DataCollector[T]) AgentReporter(name string, fn func(T) float64) *DataCollector[T] {
	c.agentReporters = append(c.agentReporters, namedAgentReporter[T]{name: name, fn: fn})
	return c
}

// Collect snapshots every reporter for step.
func (c *DataCollector[T]) Collect(step int) {
	if len(c.modelReporters) > 0 {
		row := ModelRow{Step: step, Values: make(map[string]float64, len(c.modelReporters))}
		for _, r := range c.modelReporters {
			row.Values[r.name] = r.fn()
		}
		c.modelRows = append(c.modelRows, row)
	}

	if len(c.agentReporters) == 0 {
		return
	}
	for _, a := range c.source() {
		row := AgentRow{Step: step, AgentID: c.idOf(a), Values: make(map[string]float64, len(c.agentReporters))}
		for _, r := range c.agentReporters {
			row.Values[r.name] = r.fn(a)
		}
		c.agentRows = append(c.agentRows, row)
	}
}

// ModelVars returns every collected model row.
func (c *DataCollector[T]) ModelVars() []ModelRow {
	return c.modelRows
}

// AgentVars returns every collected agent row.
func (c *DataCollector[T]) AgentVars() []AgentRow {
	return c.agentRows
}

// AgentVarsAt returns the agent rows collected at step.
func (c *DataCollector[T]) AgentVarsAt(step int) []AgentRow {
	var out []AgentRow
	for _, r := range c.agentRows {
		if r.Step == step {
			out = append(out, r)
		}
	}
	return out
}

// Series returns one model variable across all collected steps.
func (c *DataCollector[T]) Series(name string) []float64 {
	out := make([]float64, 0, len(c.modelRows))
	for _, r := range c.modelRows {
		out = append(out, r.Values[name])
	}
	return out
}

// ModelNames lists registered model variables in registration order.
func (c *DataCollector[T]) ModelNames() []string {
	names := make([]string, len(c.modelReporters))
	for i, r := range c.modelReporters {
		names[i] = r.name
	}
	return names
}

// AgentNames lists registered agent variables in registration order.
func (c *DataCollector[T]) AgentNames() []string {
	names := make([]string, len(c.agentReporters))
	for i, r := range c.agentReporters {
		names[i] = r.name
	}
	return names
}
