package grid

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Placer chooses starting cells for agents.
type Placer interface {
	Place(rng *rand.Rand, width, height int) Pos
}

// UniformPlacer picks every cell with equal probability.
type UniformPlacer struct{}

// Place returns a uniformly random cell.
func (UniformPlacer) Place(rng *rand.Rand, width, height int) Pos {
	return Pos{X: rng.Intn(width), Y: rng.Intn(height)}
}

// NoisePlacer clusters agents by rejection-sampling cells against a fractal
// OpenSimplex density field.
type NoisePlacer struct {
	noise opensimplex.Noise

	Frequency   float64 // Base frequency in cells⁻¹
	Octaves     int
	Persistence float64
	Contrast    float64 // Density exponent; higher values tighten clusters
	MaxTries    int     // Rejections before accepting any cell
}

// NewNoisePlacer creates a clustered placer seeded deterministically.
func NewNoisePlacer(seed int64) *NoisePlacer {
	return &NoisePlacer{
		noise:       opensimplex.NewNormalized(seed),
		Frequency:   0.12,
		Octaves:     3,
		Persistence: 0.5,
		Contrast:    2,
		MaxTries:    64,
	}
}

// Density returns the acceptance probability for cell (x, y) in [0, 1].
func (p *NoisePlacer) Density(x, y int) float64 {
	v := octaveNoise(p.noise, float64(x), float64(y), p.Octaves, p.Frequency, p.Persistence)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return math.Pow(v, p.Contrast)
}

// Place samples a cell, favouring high-density regions.
func (p *NoisePlacer) Place(rng *rand.Rand, width, height int) Pos {
	var pos Pos
	for i := 0; i < p.MaxTries; i++ {
		pos = Pos{X: rng.Intn(width), Y: rng.Intn(height)}
		if rng.Float64() < p.Density(pos.X, pos.Y) {
			return pos
		}
	}
	return pos
}

// NewPlacer returns the placer registered under name: "clustered" or the
// default "uniform".
func NewPlacer(name string, seed int64) Placer {
	if name == "clustered" {
		return NewNoisePlacer(seed)
	}
	return UniformPlacer{}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
