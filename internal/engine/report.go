package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/happiness-abm/internal/agents"
)

// Portrayal describes how the browser draws one agent.
type Portrayal struct {
	ID        agents.AgentID `json:"id"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Shape     string         `json:"shape"`
	R         float64        `json:"r"`
	Filled    bool           `json:"filled"`
	Layer     int            `json:"layer"`
	Color     string         `json:"color"`
	Text      string         `json:"text"`
	TextColor string         `json:"text_color"`
}

// Portray returns the drawing instructions for every agent.
func (m *SocialModel) Portray() []Portrayal {
	out := make([]Portrayal, 0, len(m.Agents))
	for _, a := range m.Agents {
		out = append(out, Portrayal{
			ID:        a.ID,
			X:         a.Pos.X,
			Y:         a.Pos.Y,
			Shape:     "circle",
			R:         0.8,
			Filled:    true,
			Layer:     0,
			Color:     a.Color(),
			Text:      fmt.Sprintf("H:%.1f S:%.1f", a.Happiness, a.Sociability),
			TextColor: "black",
		})
	}
	return out
}

// Histogram is a binned distribution of happiness for one alpha group.
type Histogram struct {
	Alpha    float64   `json:"alpha"`
	Dividers []float64 `json:"dividers"` // len(Counts)+1 bin edges
	Counts   []float64 `json:"counts"`
}

// HistogramsByAlpha bins agent happiness separately for each alpha value,
// ordered by alpha.
func HistogramsByAlpha(rows []AgentRow, bins int) []Histogram {
	if bins < 1 {
		bins = 1
	}

	groups := make(map[float64][]float64)
	for _, r := range rows {
		alpha, ok := r.Values[VarAlpha]
		if !ok {
			continue
		}
		groups[alpha] = append(groups[alpha], r.Values[VarHappiness])
	}

	alphas := make([]float64, 0, len(groups))
	for a := range groups {
		alphas = append(alphas, a)
	}
	sort.Float64s(alphas)

	out := make([]Histogram, 0, len(alphas))
	for _, a := range alphas {
		xs := groups[a]
		sort.Float64s(xs)

		lo, hi := xs[0], xs[len(xs)-1]
		if hi <= lo {
			hi = lo + 1
		}
		dividers := make([]float64, bins+1)
		width := (hi - lo) / float64(bins)
		for i := range dividers {
			dividers[i] = lo + float64(i)*width
		}
		// stat.Histogram needs the last edge strictly above the maximum.
		dividers[bins] = math.Nextafter(hi, math.Inf(1))

		out = append(out, Histogram{
			Alpha:    a,
			Dividers: dividers,
			Counts:   stat.Histogram(nil, dividers, xs, nil),
		})
	}
	return out
}
