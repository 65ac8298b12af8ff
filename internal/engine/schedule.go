package engine

import "math/rand"

// RandomActivation activates every agent once per step in a freshly
// shuffled order.
type RandomActivation[T any] struct {
	rng    *rand.Rand
	agents []T
	steps  int
}

// NewRandomActivation creates an empty schedule drawing from rng.
func NewRandomActivation[T any](rng *rand.Rand) *RandomActivation[T] {
	return &RandomActivation[T]{rng: rng}
}

// Add appends an agent to the schedule.
func (s *RandomActivation[T]) Add(a T) {
	s.agents = append(s.agents, a)
}

// Agents returns the scheduled agents in insertion order.
func (s *RandomActivation[T]) Agents() []T {
	return s.agents
}

// Len returns the number of scheduled agents.
func (s *RandomActivation[T]) Len() int {
	return len(s.agents)
}

// Steps returns how many times Step has run.
func (s *RandomActivation[T]) Steps() int {
	return s.steps
}

// Step calls activate for each agent in random order.
func (s *RandomActivation[T]) Step(activate func(T)) {
	order := make([]T, len(s.agents))
	copy(order, s.agents)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	for _, a := range order {
		activate(a)
	}
	s.steps++
}
