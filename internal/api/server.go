// Package api provides the HTTP API for querying world state.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"marchland/internal/caravan"
	"marchland/internal/clock"
	"marchland/internal/settlement"
	"marchland/internal/sim"
	"marchland/internal/store"
	"marchland/internal/terrain"
)

// Viewport ceiling for the bulk map endpoint.
const (
	maxMapWidth  = 1024
	maxMapHeight = 512
)

// Server serves the world state over HTTP.
type Server struct {
	World      *sim.World
	Clock      *clock.Clock
	Store      *store.Store // nil disables the save endpoint
	Addr       string
	AdminToken string // Bearer token for POST endpoints. Empty = POST disabled.
	RateLimit  int    // map requests per minute per client, <=0 = default
}

// Router builds the full route tree. Split out from Start so tests can
// drive it through httptest.
func (s *Server) Router() http.Handler {
	rate := s.RateLimit
	if rate <= 0 {
		rate = 120
	}
	mapLimiter := NewRateLimiter(rate, time.Minute)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (GET, read-only; anyone can check in on the world).
		r.Get("/status", s.handleStatus)
		r.Get("/terrain/{x}/{y}", s.handleTerrain)
		r.Get("/map", RateLimitMiddleware(mapLimiter, s.handleMap))
		r.Get("/settlements", s.handleSettlements)
		r.Get("/settlements/{id}", s.handleSettlementDetail)
		r.Get("/caravans", s.handleCaravans)
		r.Get("/events", s.handleEvents)

		// Admin endpoints (POST, require bearer token).
		r.Post("/speed", s.adminOnly(s.handleSpeed))
		r.Post("/save", s.adminOnly(s.handleSave))
	})
	return corsMiddleware(r)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	handler := s.Router()
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminToken != "")
	go func() {
		if err := http.ListenAndServe(s.Addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminToken
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminToken == "" {
			http.Error(w, "admin endpoints disabled (no admin token configured)", http.StatusForbidden)
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
	stats := s.World.Stats()

	speed := 0.0
	if s.Clock != nil {
		speed = s.Clock.Speed()
	}

	status := map[string]any{
		"name":              "Marchland",
		"tick":              stats.Tick,
		"seed":              stats.Seed,
		"size":              fmt.Sprintf("%dx%d", stats.Width, stats.Height),
		"speed":             speed,
		"cities":            stats.Cities,
		"towns":             stats.Towns,
		"free_towns":        stats.FreeTowns,
		"villages":          stats.Villages,
		"caravans_active":   stats.CaravansActive,
		"goods_pressed":     stats.GoodsPressed,
		"tribute_delivered": stats.TributeDelivered,
		"cargo_delivered":   stats.CargoDelivered,
		"round_trips":       stats.RoundTrips,
	}
	writeJSON(w, status)
}

func (s *Server) handleTerrain(w http.ResponseWriter, r *http.Request) {
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		http.Error(w, "invalid x coordinate", http.StatusBadRequest)
		return
	}
	y, err := strconv.Atoi(chi.URLParam(r, "y"))
	if err != nil {
		http.Error(w, "invalid y coordinate", http.StatusBadRequest)
		return
	}

	cell, ok := s.World.TerrainAt(x, y)
	if !ok {
		http.Error(w, "outside the map", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"x":         x,
		"y":         y,
		"type":      cell.Type.Name(),
		"glyph":     string(cell.Type.Glyph()),
		"cost":      cell.Cost,
		"passable":  cell.Type.Passable(),
		"elevation": cell.Elevation,
	})
}

// handleMap returns a rectangular glyph viewport. Rate-limited: a full-size
// dump is the most expensive read the API serves.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	x := intQuery(r, "x", 0)
	y := intQuery(r, "y", 0)
	width := intQuery(r, "width", 80)
	height := intQuery(r, "height", 40)

	if width <= 0 || height <= 0 {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}
	if width > maxMapWidth || height > maxMapHeight {
		http.Error(w, fmt.Sprintf("viewport too large (max %dx%d)", maxMapWidth, maxMapHeight), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"x":      x,
		"y":      y,
		"width":  width,
		"height": height,
		"rows":   s.World.RenderRegion(x, y, width, height),
	})
}

type settlementSummary struct {
	ID         settlement.ID  `json:"id"`
	Name       string         `json:"name"`
	Tier       string         `json:"tier"`
	X          int            `json:"x"`
	Y          int            `json:"y"`
	LiegeID    settlement.ID  `json:"liege_id,omitempty"`
	Produces   string         `json:"produces,omitempty"`
	Stock      map[string]int `json:"stock,omitempty"`
	TradeGoods *int           `json:"trade_goods,omitempty"`
}

func summarize(st *settlement.Settlement) settlementSummary {
	out := settlementSummary{
		ID:   st.ID,
		Name: st.Name,
		Tier: st.Tier.Name(),
		X:    st.Position.X,
		Y:    st.Position.Y,
	}
	if liege, ok := st.LiegeID(); ok {
		out.LiegeID = liege
	}
	switch {
	case st.Village != nil:
		out.Produces = st.Village.Produces.Name()
	case st.Town != nil:
		out.Stock = make(map[string]int, settlement.NumResources)
		for _, res := range settlement.Resources() {
			out.Stock[res.Name()] = st.Town.Stock.Amount(res)
		}
		tg := st.Town.TradeGoods
		out.TradeGoods = &tg
	case st.City != nil:
		tg := st.City.TradeGoods
		out.TradeGoods = &tg
	}
	return out
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	var list []*settlement.Settlement
	if radius := intQuery(r, "radius", 0); radius > 0 {
		center := terrain.Point{X: intQuery(r, "x", 0), Y: intQuery(r, "y", 0)}
		list = s.World.SettlementsNear(center, radius)
	} else {
		list = s.World.Settlements()
	}

	result := make([]settlementSummary, 0, len(list))
	for _, st := range list {
		result = append(result, summarize(st))
	}
	writeJSON(w, result)
}

func (s *Server) handleSettlementDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid settlement id", http.StatusBadRequest)
		return
	}

	st, ok := s.World.SettlementByID(id)
	if !ok {
		http.Error(w, "settlement not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{"settlement": summarize(st)}

	if liege, ok := s.World.LiegeOf(id); ok {
		detail["liege"] = map[string]any{"id": liege.ID, "name": liege.Name, "tier": liege.Tier.Name()}
	}

	vassals := s.World.VassalsOf(id)
	if len(vassals) > 0 {
		entries := make([]map[string]any, 0, len(vassals))
		for _, v := range vassals {
			entries = append(entries, map[string]any{"id": v.ID, "name": v.Name, "tier": v.Tier.Name()})
		}
		detail["vassals"] = entries
	}

	writeJSON(w, detail)
}

func (s *Server) handleCaravans(w http.ResponseWriter, r *http.Request) {
	var list []*caravan.Caravan
	if radius := intQuery(r, "radius", 0); radius > 0 {
		center := terrain.Point{X: intQuery(r, "x", 0), Y: intQuery(r, "y", 0)}
		list = s.World.CaravansNear(center, radius)
	} else {
		list = s.World.Caravans()
	}

	type caravanSummary struct {
		ID       caravan.ID `json:"id"`
		State    string     `json:"state"`
		X        int        `json:"x"`
		Y        int        `json:"y"`
		Origin   string     `json:"origin"`
		Target   string     `json:"target"`
		Cargo    string     `json:"cargo"`
		Quantity int        `json:"quantity"`
	}

	result := make([]caravanSummary, 0, len(list))
	for _, c := range list {
		entry := caravanSummary{
			ID:       c.ID,
			State:    c.State.Name(),
			X:        c.Position.X,
			Y:        c.Position.Y,
			Cargo:    c.Cargo.Name(),
			Quantity: c.Quantity,
		}
		if origin, ok := s.World.SettlementByID(c.OriginID); ok {
			entry.Origin = origin.Name
		}
		if target, ok := s.World.SettlementByID(c.TargetID); ok {
			entry.Target = target.Name
		}
		result = append(result, entry)
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	writeJSON(w, s.World.RecentEvents(limit))
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
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

	s.Clock.SetSpeed(req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	snap := s.World.Snapshot()
	if err := s.Store.SaveSnapshot(snap); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    snap.Tick,
		"message": "snapshot saved",
	})
}

func intQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
