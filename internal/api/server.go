// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
// Daily reports are pushed to WebSocket subscribers on /api/v1/stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/engine"
	"github.com/talgya/kibera-unrest/internal/persistence"
)

const (
	maxStreamConns = 8
	pingInterval   = 30 * time.Second
	writeWait      = 10 * time.Second
)

// Observation is public, so any origin may open the stream.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; history and snapshots need it
	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	streamConns atomic.Int32

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan []byte
}

// Report is the message pushed to stream subscribers at the end of each day.
type Report struct {
	Type    string          `json:"type"`
	SimTime string          `json:"sim_time"`
	Stats   engine.SimStats `json:"stats"`
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	networkLimiter := NewRateLimiter(30, time.Minute)
	streamLimiter := NewRateLimiter(10, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/v1/residents", s.handleResidents)
	mux.HandleFunc("GET /api/v1/resident/{id}", s.handleResident)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/network", RateLimitMiddleware(networkLimiter, s.handleNetwork))
	mux.HandleFunc("GET /api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))

	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start serves the API until ctx is canceled.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.closeSubscribers()
	}()
}

// corsMiddleware allows read access from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no KIBERA_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Sim.Read(func() {
		tick := s.Sim.CurrentTick()
		st := s.Sim.Stats
		status = map[string]any{
			"run_id":      s.Sim.RunID,
			"seed":        s.Sim.Seed,
			"tick":        tick,
			"sim_time":    s.Sim.Clock.SimTime(tick),
			"day":         s.Sim.Clock.Day(tick),
			"population":  st.Population,
			"households":  st.Households,
			"rebels":      st.Rebels,
			"heard_rumor": st.HeardRumor,
			"edges":       s.Sim.Graph.EdgeCount(),
		}
	})
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st engine.SimStats
	s.Sim.Read(func() { st = s.Sim.Stats })
	writeJSON(w, st)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.DB.DailyStats(s.Sim.RunID)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []engine.SimStats{}
	}
	writeJSON(w, rows)
}

type residentSummary struct {
	ID         agents.ResidentID `json:"id"`
	Age        int               `json:"age"`
	Household  int               `json:"household"`
	Employment string            `json:"employment"`
	Identity   string            `json:"identity"`
	Goal       string            `json:"goal"`
	Energy     float64           `json:"energy"`
	X          int               `json:"x"`
	Y          int               `json:"y"`
}

func summarize(r *agents.Resident) residentSummary {
	sum := residentSummary{
		ID:         r.ID,
		Age:        r.Age,
		Household:  r.Household.ID,
		Employment: r.Employment.String(),
		Identity:   r.Identity.String(),
		Goal:       r.Goal.String(),
		Energy:     r.Energy,
	}
	if r.Position != nil {
		sum.X, sum.Y = r.Position.Coord.X, r.Position.Coord.Y
	}
	return sum
}

// handleResidents lists residents, optionally filtered by identity or goal.
func (s *Server) handleResidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identity, goal := q.Get("identity"), q.Get("goal")
	limit := queryInt(r, "limit", 100, 5000)

	out := []residentSummary{}
	s.Sim.Read(func() {
		for _, res := range s.Sim.Residents {
			if identity != "" && res.Identity.String() != identity {
				continue
			}
			if goal != "" && res.Goal.String() != goal {
				continue
			}
			out = append(out, summarize(res))
			if len(out) == limit {
				break
			}
		}
	})
	writeJSON(w, out)
}

type tieView struct {
	ID       agents.ResidentID `json:"id"`
	Weight   float64           `json:"weight"`
	Identity string            `json:"identity"`
}

func (s *Server) handleResident(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid resident id", http.StatusBadRequest)
		return
	}

	var body []byte
	s.Sim.Read(func() {
		res := s.Sim.ResidentIndex[agents.ResidentID(id)]
		if res == nil {
			return
		}
		ties := []tieView{}
		for _, e := range s.Sim.Graph.Ties(res.ID) {
			other := e.Other(res.ID)
			tv := tieView{ID: other, Weight: e.Weight}
			if o := s.Sim.ResidentIndex[other]; o != nil {
				tv.Identity = o.Identity.String()
			}
			ties = append(ties, tv)
		}
		hh := res.Household
		// Encoded here: the resident is only stable between ticks.
		body = mustMarshal(map[string]any{
			"resident":  res,
			"summary":   summarize(res),
			"placement": res.Placement.Kind.String(),
			"household": map[string]any{
				"id":              hh.ID,
				"members":         len(hh.Members),
				"daily_income":    hh.DailyIncome,
				"expenditures":    hh.Expenditures,
				"discrepancy":     hh.Discrepancy,
				"happiness":       hh.Happiness(),
				"remaining_water": hh.RemainingWater,
			},
			"ties": ties,
		})
	})
	if body == nil {
		http.Error(w, "resident not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	category := r.URL.Query().Get("category")

	var events []engine.Event
	s.Sim.Read(func() {
		for _, e := range s.Sim.Events {
			if category == "" || e.Category == category {
				events = append(events, e)
			}
		}
	})

	start := max(0, len(events)-limit)
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

type edgeView struct {
	A      agents.ResidentID `json:"a"`
	B      agents.ResidentID `json:"b"`
	Weight float64           `json:"weight"`
}

// handleNetwork dumps the social graph, optionally keeping only ties at or
// above min_weight.
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	minWeight := 0.0
	if v := r.URL.Query().Get("min_weight"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minWeight = f
		}
	}

	edges := []edgeView{}
	var nodes int
	var mean float64
	s.Sim.Read(func() {
		nodes = s.Sim.Graph.NodeCount()
		mean = s.Sim.Graph.MeanDegree()
		for _, e := range s.Sim.Graph.Edges() {
			if e.Weight >= minWeight {
				edges = append(edges, edgeView{A: e.A, B: e.B, Weight: e.Weight})
			}
		}
	})
	writeJSON(w, map[string]any{
		"nodes":       nodes,
		"mean_degree": mean,
		"edges":       edges,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not attached", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.Speed = req.Speed
	slog.Info("speed changed", "speed", req.Speed)

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	var tick uint64
	s.Sim.Read(func() { tick = s.Sim.CurrentTick() })
	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "snapshot saved",
	})
}

// Publish sends a daily report to every stream subscriber. Slow subscribers
// miss reports rather than stall the simulation.
func (s *Server) Publish(tick uint64, st engine.SimStats) {
	msg, err := json.Marshal(Report{Type: "daily_report", SimTime: s.Sim.Clock.SimTime(tick), Stats: st})
	if err != nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- msg:
		default:
			slog.Debug("stream subscriber behind, dropping report", "sub_id", id)
		}
	}
}

func (s *Server) subscribe() (int, chan []byte) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan []byte)
	}
	s.nextSub++
	ch := make(chan []byte, 16)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

func (s *Server) unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Server) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// handleStream upgrades to a WebSocket, sends the current statistics as a
// catch-up report and then one report per simulated day.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := s.streamConns.Add(1); n > maxStreamConns {
		s.streamConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streamConns.Add(-1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ch := s.subscribe()
	defer s.unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	var catchUp Report
	s.Sim.Read(func() {
		catchUp = Report{Type: "catch_up", SimTime: s.Sim.Clock.SimTime(s.Sim.CurrentTick()), Stats: s.Sim.Stats}
	})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(catchUp); err != nil {
		return
	}

	// Reader: only needed to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func queryInt(r *http.Request, key string, def, maxVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxVal {
			return n
		}
	}
	return def
}

func mustMarshal(v any) []byte {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return []byte(`{"error":"encode failed"}`)
	}
	return data
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
