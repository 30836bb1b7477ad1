package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marchland/internal/caravan"
	"marchland/internal/clock"
	"marchland/internal/settlement"
	"marchland/internal/sim"
	"marchland/internal/store"
	"marchland/internal/terrain"
)

func testServer(t *testing.T, ticks int) (*Server, http.Handler) {
	t.Helper()
	w, err := sim.New(terrain.SmallGenConfig(), settlement.SmallPlaceConfig(), caravan.DefaultConfig())
	if err != nil {
		t.Fatalf("sim.New() failed: %v", err)
	}
	for i := 0; i < ticks; i++ {
		w.Step()
	}
	srv := &Server{
		World:      w,
		Clock:      clock.New(time.Second, 0),
		AdminToken: "hushhush",
	}
	return srv, srv.Router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decoding response %q failed: %v", rec.Body.String(), err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, h := testServer(t, 5)

	rec := get(t, h, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status map[string]any
	decode(t, rec, &status)

	if status["name"] != "Marchland" {
		t.Fatalf("name = %v", status["name"])
	}
	if status["tick"].(float64) != 5 {
		t.Fatalf("tick = %v, want 5", status["tick"])
	}
	if status["speed"].(float64) != 1.0 {
		t.Fatalf("speed = %v, want 1", status["speed"])
	}
	if status["villages"].(float64) <= 0 {
		t.Fatalf("villages = %v, want > 0", status["villages"])
	}
}

func TestTerrainEndpoint(t *testing.T) {
	_, h := testServer(t, 0)

	rec := get(t, h, "/api/v1/terrain/0/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var cell map[string]any
	decode(t, rec, &cell)
	if cell["type"] != "border" || cell["passable"] != false {
		t.Fatalf("corner cell = %v, want impassable border", cell)
	}

	if rec := get(t, h, "/api/v1/terrain/abc/0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric coordinate: status = %d, want 400", rec.Code)
	}
	if rec := get(t, h, "/api/v1/terrain/-5/0"); rec.Code != http.StatusNotFound {
		t.Fatalf("off-map coordinate: status = %d, want 404", rec.Code)
	}
}

func TestMapEndpoint(t *testing.T) {
	_, h := testServer(t, 0)

	rec := get(t, h, "/api/v1/map?x=0&y=0&width=10&height=4")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var view struct {
		Width  int      `json:"width"`
		Height int      `json:"height"`
		Rows   []string `json:"rows"`
	}
	decode(t, rec, &view)
	if len(view.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(view.Rows))
	}
	for _, row := range view.Rows {
		if len(row) != 10 {
			t.Fatalf("row %q has width %d, want 10", row, len(row))
		}
	}
	if view.Rows[0] != strings.Repeat("#", 10) {
		t.Fatalf("top row %q is not all border", view.Rows[0])
	}

	if rec := get(t, h, "/api/v1/map?width=5000&height=4"); rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized viewport: status = %d, want 400", rec.Code)
	}
	if rec := get(t, h, "/api/v1/map?width=0&height=4"); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero-width viewport: status = %d, want 400", rec.Code)
	}
}

func TestMapRateLimit(t *testing.T) {
	srv, _ := testServer(t, 0)
	srv.RateLimit = 3
	h := srv.Router()

	for i := 0; i < 3; i++ {
		if rec := get(t, h, "/api/v1/map?width=5&height=5"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := get(t, h, "/api/v1/map?width=5&height=5")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 response is missing Retry-After")
	}

	// A different client gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/map?width=5&height=5", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Fatalf("fresh client: status = %d, want 200", other.Code)
	}
}

func TestSettlementsEndpoint(t *testing.T) {
	srv, h := testServer(t, 0)
	stats := srv.World.Stats()

	rec := get(t, h, "/api/v1/settlements")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list []settlementSummary
	decode(t, rec, &list)
	if want := stats.Cities + stats.Towns + stats.Villages; len(list) != want {
		t.Fatalf("got %d settlements, want %d", len(list), want)
	}

	// The near filter centered on the first entry must include it.
	first := list[0]
	rec = get(t, h, fmt.Sprintf("/api/v1/settlements?x=%d&y=%d&radius=1", first.X, first.Y))
	var near []settlementSummary
	decode(t, rec, &near)
	found := false
	for _, st := range near {
		if st.ID == first.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("near filter at (%d,%d) lost settlement %d", first.X, first.Y, first.ID)
	}
	if len(near) > len(list) {
		t.Fatalf("near filter returned %d > %d settlements", len(near), len(list))
	}
}

func TestSettlementDetailEndpoint(t *testing.T) {
	_, h := testServer(t, 0)

	var village settlementSummary
	var all []settlementSummary
	decode(t, get(t, h, "/api/v1/settlements"), &all)
	for _, st := range all {
		if st.Tier == "village" {
			village = st
			break
		}
	}
	if village.ID == 0 {
		t.Fatal("no village in settlement list")
	}

	rec := get(t, h, fmt.Sprintf("/api/v1/settlements/%d", village.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var detail struct {
		Settlement settlementSummary `json:"settlement"`
		Liege      *struct {
			ID   settlement.ID `json:"id"`
			Name string        `json:"name"`
		} `json:"liege"`
	}
	decode(t, rec, &detail)
	if detail.Settlement.ID != village.ID || detail.Settlement.Produces == "" {
		t.Fatalf("village detail incomplete: %+v", detail.Settlement)
	}
	if detail.Liege == nil || detail.Liege.Name == "" {
		t.Fatal("village detail is missing its liege")
	}

	// The liege's detail lists the village among its vassals.
	rec = get(t, h, fmt.Sprintf("/api/v1/settlements/%d", detail.Liege.ID))
	var liegeDetail struct {
		Vassals []struct {
			ID settlement.ID `json:"id"`
		} `json:"vassals"`
	}
	decode(t, rec, &liegeDetail)
	found := false
	for _, v := range liegeDetail.Vassals {
		if v.ID == village.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("village %d missing from its liege's vassal list", village.ID)
	}

	if rec := get(t, h, "/api/v1/settlements/999999"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/api/v1/settlements/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestCaravansEndpoint(t *testing.T) {
	srv, h := testServer(t, 0)
	for i := 0; i < 10 && len(srv.World.Caravans()) == 0; i++ {
		srv.World.Step()
	}

	rec := get(t, h, "/api/v1/caravans")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list []struct {
		State    string `json:"state"`
		Origin   string `json:"origin"`
		Target   string `json:"target"`
		Cargo    string `json:"cargo"`
		Quantity int    `json:"quantity"`
	}
	decode(t, rec, &list)
	if len(list) == 0 {
		t.Fatal("no caravans on the road")
	}
	for _, c := range list {
		if c.State == "" || c.Origin == "" || c.Target == "" || c.Cargo == "" {
			t.Fatalf("caravan summary incomplete: %+v", c)
		}
		// Outbound caravans carry cargo; returning ones ride empty.
		if c.State == "traveling" && c.Quantity <= 0 {
			t.Fatalf("outbound caravan carries %d", c.Quantity)
		}
	}
}

func TestEventsEndpoint(t *testing.T) {
	_, h := testServer(t, 10)

	rec := get(t, h, "/api/v1/events?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var events []sim.Event
	decode(t, rec, &events)
	if len(events) == 0 || len(events) > 5 {
		t.Fatalf("got %d events, want 1..5", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Tick < events[i-1].Tick {
			t.Fatal("events are not in tick order")
		}
	}
}

func postSpeed(t *testing.T, h http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminSpeedEndpoint(t *testing.T) {
	srv, h := testServer(t, 0)

	if rec := postSpeed(t, h, "", `{"speed": 2.5}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}
	if rec := postSpeed(t, h, "wrong", `{"speed": 2.5}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", rec.Code)
	}
	if rec := postSpeed(t, h, "hushhush", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: status = %d, want 400", rec.Code)
	}
	if rec := postSpeed(t, h, "hushhush", `{"speed": 5000}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range speed: status = %d, want 400", rec.Code)
	}

	rec := postSpeed(t, h, "hushhush", `{"speed": 2.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]float64
	decode(t, rec, &resp)
	if resp["speed"] != 2.5 {
		t.Fatalf("speed = %v, want 2.5", resp["speed"])
	}
	if srv.Clock.Speed() != 2.5 {
		t.Fatalf("clock speed = %v, want 2.5", srv.Clock.Speed())
	}

	// No token configured at all disables the control plane.
	srv.AdminToken = ""
	h = srv.Router()
	if rec := postSpeed(t, h, "hushhush", `{"speed": 1}`); rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin: status = %d, want 403", rec.Code)
	}
}

func TestAdminSaveEndpoint(t *testing.T) {
	srv, h := testServer(t, 8)

	post := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/save", nil)
		req.Header.Set("Authorization", "Bearer hushhush")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(h); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no store: status = %d, want 503", rec.Code)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	defer st.Close()
	srv.Store = st
	h = srv.Router()

	rec := post(h)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	decode(t, rec, &resp)
	if resp["message"] != "snapshot saved" || resp["tick"].(float64) != 8 {
		t.Fatalf("save response = %v", resp)
	}

	snap, err := st.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() after save failed: %v", err)
	}
	if snap.Tick != 8 {
		t.Fatalf("stored tick = %d, want 8", snap.Tick)
	}
}

func TestCORSHeaders(t *testing.T) {
	_, h := testServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allowed origin not echoed: %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin was allowed")
	}
}
