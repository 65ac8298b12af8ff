package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/happiness-abm/internal/grid"
	"github.com/talgya/happiness-abm/internal/happiness"
)

const (
	DefaultSocialThreshold = 2.0 // Sociability above which agents seek crowds
	MaxPermeability        = 0.3
	PermeabilityRate       = 0.05 // Permeability per unit of sociability
)

// Palette maps rounded happiness 0..5 to a display color.
var Palette = [6]string{"Red", "Orange", "Yellow", "Green", "LightBlue", "DarkBlue"}

// FallbackColor is used when happiness cannot be mapped.
const FallbackColor = "Grey"

// SocialAgent carries a happiness level that drifts toward its neighbours'
// and a sociability that decides both how far it drifts and where it moves.
type SocialAgent struct {
	ID          AgentID  `json:"id"`
	Happiness   float64  `json:"happiness"`   // 0–5
	Sociability float64  `json:"sociability"` // Roughly 0–10
	Threshold   float64  `json:"threshold"`
	Pos         grid.Pos `json:"pos"`
}

// NewSocialAgent creates an agent with the default sociability threshold.
func NewSocialAgent(id AgentID, h, sociability float64) *SocialAgent {
	return &SocialAgent{
		ID:          id,
		Happiness:   h,
		Sociability: sociability,
		Threshold:   DefaultSocialThreshold,
	}
}

// Gregarious reports whether the agent prefers crowded cells.
func (a *SocialAgent) Gregarious() bool {
	return a.Sociability > a.Threshold
}

// Color returns the palette entry for the agent's rounded happiness.
func (a *SocialAgent) Color() string {
	if math.IsNaN(a.Happiness) {
		return FallbackColor
	}
	idx := int(math.RoundToEven(happiness.Clamp(a.Happiness, 0, happiness.MaxScore)))
	if idx < 0 || idx >= len(Palette) {
		return FallbackColor
	}
	return Palette[idx]
}

// Permeability is the fraction of the gap to the neighbourhood mean the
// agent closes per step.
func (a *SocialAgent) Permeability() float64 {
	return math.Min(MaxPermeability, a.Sociability*PermeabilityRate)
}

// Influence pulls happiness toward the neighbourhood mean, clamped to 0–5.
func (a *SocialAgent) Influence(neighborMean float64) {
	delta := (neighborMean - a.Happiness) * a.Permeability()
	a.Happiness = happiness.Clamp(a.Happiness+delta, 0, happiness.MaxScore)
}

// Candidate is a cell the agent may move to and how many agents occupy it.
type Candidate struct {
	Pos       grid.Pos
	Occupants int
}

// ChooseCell picks the most crowded candidate for gregarious agents and the
// emptiest for the rest, breaking ties uniformly at random.
func (a *SocialAgent) ChooseCell(cands []Candidate, rng *rand.Rand) (grid.Pos, bool) {
	if len(cands) == 0 {
		return grid.Pos{}, false
	}

	target := cands[0].Occupants
	for _, c := range cands[1:] {
		if a.Gregarious() && c.Occupants > target {
			target = c.Occupants
		}
		if !a.Gregarious() && c.Occupants < target {
			target = c.Occupants
		}
	}

	best := make([]grid.Pos, 0, len(cands))
	for _, c := range cands {
		if c.Occupants == target {
			best = append(best, c.Pos)
		}
	}
	return best[rng.Intn(len(best))], true
}
