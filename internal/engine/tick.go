// Package engine provides the scheduling, data collection and step loop
// shared by the happiness models.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a model forward on a timer for the live visualization.
type Engine struct {
	Interval time.Duration // Base step interval at speed 1.0

	// OnStep is called once per step with the step counter.
	OnStep func(step uint64)

	mu     sync.Mutex
	speed  float64 // Multiplier: 1.0 = one step per Interval
	paused bool
	step   uint64
}

// NewEngine creates a paused engine stepping twice a second at speed 1.
func NewEngine() *Engine {
	return &Engine{
		Interval: 500 * time.Millisecond,
		speed:    1.0,
		paused:   true,
	}
}

// Run steps the model until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("step engine started", "step", e.Steps(), "speed", e.Speed())
	defer func() {
		slog.Info("step engine stopped", "step", e.Steps())
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if e.Paused() || e.Speed() <= 0 {
			if !sleep(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		start := time.Now()
		e.Advance()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed())
		if elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return
			}
		}
	}
}

// Advance performs a single step regardless of the paused state.
func (e *Engine) Advance() uint64 {
	e.mu.Lock()
	e.step++
	step := e.step
	onStep := e.OnStep
	e.mu.Unlock()

	if onStep != nil {
		onStep(step)
	}
	return step
}

// Pause stops automatic stepping.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume restarts automatic stepping.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether automatic stepping is off.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetSpeed changes the step rate multiplier.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Speed returns the step rate multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Steps returns the number of steps taken since the last Reset.
func (e *Engine) Steps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Reset zeroes the step counter and pauses the engine.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.step = 0
	e.paused = true
	e.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
