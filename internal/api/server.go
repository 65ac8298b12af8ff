// Package api serves the social model's grid to a browser.
// GET endpoints observe the model; POST endpoints drive it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/talgya/happiness-abm/internal/engine"
)

// MaxSpeed bounds the speed multiplier accepted by /api/v1/speed.
const MaxSpeed = 1000

// ModelFactory builds a fresh social model. It is called at startup and on
// every reset.
type ModelFactory func() (*engine.SocialModel, error)

// Options configures the server.
type Options struct {
	Addr         string // host:port, "localhost:0" picks a free port
	Title        string
	StepInterval time.Duration
	CORSOrigins  []string
	RateLimit    RateLimitConfig
	CellSize     int // Pixels per grid cell
	PollInterval time.Duration
}

// DefaultOptions returns the stock server settings.
func DefaultOptions() Options {
	return Options{
		Addr:         "localhost:8521",
		Title:        "Happiness ABM",
		StepInterval: 500 * time.Millisecond,
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		CellSize:     20,
		PollInterval: 500 * time.Millisecond,
	}
}

// Server serves one social model over HTTP and steps it on a timer.
type Server struct {
	opts    Options
	factory ModelFactory
	eng     *engine.Engine
	limiter *RateLimiter
	page    *template.Template

	modelMu sync.Mutex
	model   *engine.SocialModel

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewServer builds the initial model and a paused step engine.
func NewServer(factory ModelFactory, opts Options) (*Server, error) {
	if opts.CellSize <= 0 {
		opts.CellSize = DefaultOptions().CellSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}

	model, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	page, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	s := &Server{
		opts:    opts,
		factory: factory,
		eng:     engine.NewEngine(),
		limiter: NewRateLimiter(opts.RateLimit),
		page:    page,
		model:   model,
	}
	if opts.StepInterval > 0 {
		s.eng.Interval = opts.StepInterval
	}
	s.eng.OnStep = func(uint64) { s.stepModel() }
	return s, nil
}

// Engine exposes the step loop.
func (s *Server) Engine() *engine.Engine {
	return s.eng
}

// Addr returns the address the server is listening on. Empty until
// ListenAndServe has bound its listener.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("POST /api/v1/step", s.handleStep)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("POST /api/v1/run", s.handleRun)
	mux.HandleFunc("POST /api/v1/pause", s.handlePause)
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.HandleFunc("POST /api/v1/speed", s.handleSpeed)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.limiter.Middleware(mux))
}

// ListenAndServe binds the configured address, runs the step engine and
// serves until ctx is cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("grid server starting", "addr", s.Addr(), "cors_origins", s.opts.CORSOrigins,
		"rate_limit", s.opts.RateLimit.Enabled)

	go s.eng.Run(ctx)
	go s.sweepLimiter(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.limiter.Sweep(now); n > 0 {
				slog.Debug("rate limiter swept", "clients", n)
			}
		}
	}
}

func (s *Server) stepModel() {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	s.model.Step()
}

// State is the payload of GET /api/v1/state.
type State struct {
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Step          int                `json:"step"`
	Paused        bool               `json:"paused"`
	Speed         float64            `json:"speed"`
	Synthetic     bool               `json:"synthetic"`
	MeanHappiness float64            `json:"mean_happiness"`
	Dispersion    float64            `json:"dispersion"`
	Agents        []engine.Portrayal `json:"agents"`
}

func (s *Server) snapshot() State {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return State{
		Width:         s.model.Config.Width,
		Height:        s.model.Config.Height,
		Step:          s.model.Steps(),
		Paused:        s.eng.Paused(),
		Speed:         s.eng.Speed(),
		Synthetic:     s.model.Synthetic,
		MeanHappiness: s.model.MeanHappiness(),
		Dispersion:    s.model.Dispersion(),
		Agents:        s.model.Portray(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.modelMu.Lock()
	width, height := s.model.Config.Width, s.model.Config.Height
	s.modelMu.Unlock()

	data := struct {
		Title        string
		CellSize     int
		CanvasWidth  int
		CanvasHeight int
		PollMillis   int64
	}{
		Title:        s.opts.Title,
		CellSize:     s.opts.CellSize,
		CanvasWidth:  width * s.opts.CellSize,
		CanvasHeight: height * s.opts.CellSize,
		PollMillis:   s.opts.PollInterval.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.modelMu.Lock()
	rows := s.model.Collector.ModelVars()
	s.modelMu.Unlock()

	if rows == nil {
		rows = []engine.ModelRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.eng.Advance()
	writeJSON(w, s.snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	model, err := s.factory()
	if err != nil {
		slog.Error("model reset failed", "error", err)
		http.Error(w, "reset failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.eng.Reset()
	s.modelMu.Lock()
	s.model = model
	s.modelMu.Unlock()

	slog.Info("model reset", "agents", len(model.Agents))
	writeJSON(w, s.snapshot())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.eng.Resume()
	slog.Info("model running", "speed", s.eng.Speed())
	writeJSON(w, map[string]bool{"paused": false})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.eng.Pause()
	slog.Info("model paused", "step", s.eng.Steps())
	writeJSON(w, map[string]bool{"paused": true})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > MaxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", MaxSpeed), http.StatusBadRequest)
			return
		}
		s.eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.eng.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
