// Package agents provides the agent records of both happiness models: the
// time-allocating Cobb-Douglas optimizer and the socially influenced agent
// that moves across the grid.
package agents

import (
	"math"

	"github.com/talgya/happiness-abm/internal/happiness"
)

// AgentID is a unique identifier for an agent within one model.
type AgentID uint64

// TimeAgent splits a fixed daily budget between relational and economic
// time to maximize its happiness.
type TimeAgent struct {
	ID AgentID `json:"id"`

	// Fixed per agent.
	Alpha      float64 `json:"alpha"`      // 0 relational … 1 materialist
	Total      float64 `json:"total"`      // Daily time budget in hours
	Resolution float64 `json:"resolution"` // Search step in hours

	// Updated every step.
	Relational float64 `json:"relational"` // T_R
	Economic   float64 `json:"economic"`   // T_E = Total - T_R
	Happiness  float64 `json:"happiness"`  // H
}

// NewTimeAgent creates an agent starting at the default relational hours,
// capped at the budget.
func NewTimeAgent(id AgentID, alpha, total float64) (*TimeAgent, error) {
	if err := happiness.ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	relational := math.Min(happiness.DefaultRelational, total)
	a := &TimeAgent{
		ID:         id,
		Alpha:      alpha,
		Total:      total,
		Resolution: happiness.DefaultStep,
		Relational: relational,
		Economic:   total - relational,
	}
	a.Happiness = a.Evaluate()
	return a, nil
}

// Evaluate returns happiness for the current allocation.
func (a *TimeAgent) Evaluate() float64 {
	return happiness.Utility(a.Alpha, a.Total, a.Relational)
}

// Optimize moves the agent to the best allocation found by grid search.
func (a *TimeAgent) Optimize() {
	best := happiness.GridSearch(a.Alpha, a.Total, a.Resolution)
	a.Relational = best.Relational
	a.Economic = a.Total - best.Relational
	a.Happiness = best.Happiness
}

// Step is one day for the agent.
func (a *TimeAgent) Step() {
	a.Optimize()
}
