// Package envserver serves the snake environment over a WebSocket so an
// out-of-process trainer can drive it.
//
// Every connection gets its own Env. Requests are JSON objects:
//
//	{"op":"spec"}
//	{"op":"reset","seed":100}   // seed is optional
//	{"op":"seed","seed":100}
//	{"op":"step","action":3}
//
// Each request gets exactly one Response.
package envserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brensch/snakegym/env"
	"github.com/gorilla/websocket"
)

const (
	OpSpec  = "spec"
	OpReset = "reset"
	OpSeed  = "seed"
	OpStep  = "step"
)

type Request struct {
	Op     string `json:"op"`
	Action *int   `json:"action,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
}

type Spec struct {
	BoardSize       int      `json:"board_size"`
	ObservationSize int      `json:"observation_size"`
	Actions         int      `json:"actions"`
	ActionNames     []string `json:"action_names"`
}

type Response struct {
	Op          string    `json:"op"`
	Observation []float32 `json:"observation,omitempty"`
	Reward      float64   `json:"reward"`
	Done        bool      `json:"done"`
	Info        *env.Info `json:"info,omitempty"`
	Spec        *Spec     `json:"spec,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type Config struct {
	BoardSize  int
	Seed       int64
	StallLimit int
	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout time.Duration
}

type Server struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	conns    atomic.Int64
	sessions atomic.Int64
}

func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			// Trainers connect from scripts, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/env", s.handleEnv)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{
		"connections": s.conns.Load(),
		"sessions":    s.sessions.Load(),
	})
}

func (s *Server) handleEnv(w http.ResponseWriter, r *http.Request) {
	e, err := env.New(env.Config{BoardSize: s.cfg.BoardSize, Seed: s.cfg.Seed, StallLimit: s.cfg.StallLimit})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	id := s.sessions.Add(1)
	s.conns.Add(1)
	defer s.conns.Add(-1)
	logger := s.logger.With("session", id, "remote", r.RemoteAddr)
	logger.Info("session opened")

	steps := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("session closed", "steps", steps)
			} else {
				logger.Warn("session read failed", "steps", steps, "err", err)
			}
			return
		}

		resp := s.dispatch(e, req)
		if req.Op == OpStep && resp.Error == "" {
			steps++
		}
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("session write failed", "err", err)
			return
		}
	}
}

// dispatch applies one request. Errors are reported in the response and leave
// the env as it was.
func (s *Server) dispatch(e *env.Env, req Request) Response {
	resp := Response{Op: req.Op}
	switch req.Op {
	case OpSpec:
		resp.Spec = &Spec{
			BoardSize:       e.BoardSize(),
			ObservationSize: e.ObservationSize(),
			Actions:         e.ActionSpace(),
			ActionNames:     env.ActionNames,
		}
	case OpReset:
		resp.Observation = e.Reset()
		if req.Seed != nil {
			e.Seed(*req.Seed)
			resp.Observation = e.Observation()
		}
	case OpSeed:
		if req.Seed == nil {
			resp.Error = "seed: missing seed"
			break
		}
		e.Seed(*req.Seed)
	case OpStep:
		if req.Action == nil {
			resp.Error = "step: missing action"
			break
		}
		res, err := e.Step(*req.Action)
		if err != nil {
			resp.Error = stepError(err)
			break
		}
		resp.Observation = res.Observation
		resp.Reward = res.Reward
		resp.Done = res.Done
		resp.Info = &res.Info
	default:
		resp.Error = fmt.Sprintf("unknown op %q", req.Op)
	}
	return resp
}

func stepError(err error) string {
	if errors.Is(err, env.ErrInvalidAction) {
		return "step: " + err.Error()
	}
	return "step failed: " + err.Error()
}
