package agents

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/happiness-abm/internal/grid"
	"github.com/talgya/happiness-abm/internal/happiness"
)

func TestNewTimeAgent(t *testing.T) {
	a, err := NewTimeAgent(1, 0.3, 24)
	if err != nil {
		t.Fatalf("NewTimeAgent: %v", err)
	}
	if a.Relational != 8 || a.Economic != 16 {
		t.Errorf("initial allocation = %v/%v, want 8/16", a.Relational, a.Economic)
	}
	if want := happiness.Utility(0.3, 24, 8); a.Happiness != want {
		t.Errorf("initial happiness = %v, want %v", a.Happiness, want)
	}

	if _, err := NewTimeAgent(2, 1.5, 24); !errors.Is(err, happiness.ErrAlphaRange) {
		t.Errorf("NewTimeAgent with alpha 1.5 = %v, want ErrAlphaRange", err)
	}
}

func TestNewTimeAgent_SmallBudget(t *testing.T) {
	a, err := NewTimeAgent(1, 0.5, 6)
	if err != nil {
		t.Fatalf("NewTimeAgent: %v", err)
	}
	if a.Relational != 6 || a.Economic != 0 {
		t.Errorf("allocation = %v/%v, want 6/0", a.Relational, a.Economic)
	}
}

func TestTimeAgent_StepReachesOptimum(t *testing.T) {
	for _, alpha := range []float64{0.3, 0.7} {
		a, _ := NewTimeAgent(1, alpha, 24)
		before := a.Happiness
		a.Step()

		opt := happiness.Optimum(alpha, 24)
		if math.Abs(a.Relational-opt.Relational) > a.Resolution+1e-9 {
			t.Errorf("alpha=%v: relational = %v, want ≈ %v", alpha, a.Relational, opt.Relational)
		}
		if math.Abs(a.Relational+a.Economic-a.Total) > 1e-9 {
			t.Errorf("alpha=%v: time budget violated: %v + %v != %v", alpha, a.Relational, a.Economic, a.Total)
		}
		if a.Happiness < before {
			t.Errorf("alpha=%v: happiness fell from %v to %v", alpha, before, a.Happiness)
		}

		// A second step is a fixed point.
		prev := *a
		a.Step()
		if *a != prev {
			t.Errorf("alpha=%v: second step changed state: %+v -> %+v", alpha, prev, *a)
		}
	}
}

func TestSocialAgent_Color(t *testing.T) {
	tests := []struct {
		h    float64
		want string
	}{
		{-3, "Red"},
		{0.4, "Red"},
		{0.6, "Orange"},
		{2.5, "Yellow"}, // rounds half to even
		{3.2, "Green"},
		{4, "LightBlue"},
		{4.9, "DarkBlue"},
		{9, "DarkBlue"},
		{math.NaN(), "Grey"},
	}
	for _, tt := range tests {
		a := NewSocialAgent(1, tt.h, 1)
		if got := a.Color(); got != tt.want {
			t.Errorf("Color(h=%v) = %q, want %q", tt.h, got, tt.want)
		}
	}
}

func TestSocialAgent_Permeability(t *testing.T) {
	tests := []struct {
		sociability float64
		want        float64
	}{
		{0, 0},
		{2, 0.1},
		{6, 0.3},
		{10, 0.3},
	}
	for _, tt := range tests {
		a := NewSocialAgent(1, 3, tt.sociability)
		if got := a.Permeability(); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Permeability(%v) = %v, want %v", tt.sociability, got, tt.want)
		}
	}
}

func TestSocialAgent_Influence(t *testing.T) {
	a := NewSocialAgent(1, 2, 4) // permeability 0.2
	a.Influence(4)
	if math.Abs(a.Happiness-2.4) > 1e-12 {
		t.Errorf("Influence toward 4 = %v, want 2.4", a.Happiness)
	}

	b := NewSocialAgent(2, 4.9, 10)
	b.Influence(50)
	if b.Happiness != happiness.MaxScore {
		t.Errorf("Influence should clamp at %v, got %v", happiness.MaxScore, b.Happiness)
	}

	c := NewSocialAgent(3, 3, 0)
	c.Influence(0)
	if c.Happiness != 3 {
		t.Errorf("zero sociability should be immune to influence, got %v", c.Happiness)
	}
}

func TestSocialAgent_ChooseCell(t *testing.T) {
	cands := []Candidate{
		{Pos: grid.Pos{X: 0, Y: 0}, Occupants: 2},
		{Pos: grid.Pos{X: 1, Y: 0}, Occupants: 0},
		{Pos: grid.Pos{X: 2, Y: 0}, Occupants: 5},
		{Pos: grid.Pos{X: 3, Y: 0}, Occupants: 0},
	}
	rng := rand.New(rand.NewSource(1))

	crowd := NewSocialAgent(1, 3, 4)
	for i := 0; i < 20; i++ {
		got, ok := crowd.ChooseCell(cands, rng)
		if !ok || got != (grid.Pos{X: 2, Y: 0}) {
			t.Fatalf("gregarious agent chose %v, want (2, 0)", got)
		}
	}

	hermit := NewSocialAgent(2, 3, 1)
	seen := map[grid.Pos]bool{}
	for i := 0; i < 50; i++ {
		got, _ := hermit.ChooseCell(cands, rng)
		if got != (grid.Pos{X: 1, Y: 0}) && got != (grid.Pos{X: 3, Y: 0}) {
			t.Fatalf("hermit chose occupied cell %v", got)
		}
		seen[got] = true
	}
	if len(seen) != 2 {
		t.Errorf("hermit should break ties between both empty cells, saw %v", seen)
	}

	if _, ok := hermit.ChooseCell(nil, rng); ok {
		t.Error("ChooseCell with no candidates should report false")
	}
}

func TestSocialAgent_ThresholdIsStrict(t *testing.T) {
	a := NewSocialAgent(1, 3, DefaultSocialThreshold)
	if a.Gregarious() {
		t.Error("sociability equal to the threshold should not be gregarious")
	}
}
