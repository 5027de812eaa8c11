package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/intelligrit/chronomap/internal/atlas"
	"github.com/intelligrit/chronomap/internal/coexist"
	"github.com/intelligrit/chronomap/internal/dataset"
	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/model"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/store"
	"github.com/intelligrit/chronomap/internal/timeline"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(store.NewFSSource(dataset.FS(), "embedded"), nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.LoadManifest(context.Background()); err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	return &Server{Store: s, Addr: "localhost:0"}
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	h, err := srv.Handler()
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestHandleManifest(t *testing.T) {
	w := get(t, testServer(t), "/api/manifest")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []model.ManifestEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entries) != 11 {
		t.Errorf("expected 11 entries, got %d", len(entries))
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS, got %q", got)
	}
}

func TestHandleEmpire(t *testing.T) {
	srv := testServer(t)

	w := get(t, srv, "/api/empires/roman-empire")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var e model.Empire
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if e.ID != "roman-empire" || len(e.Geometries) != 3 {
		t.Errorf("unexpected empire %s with %d slices", e.ID, len(e.Geometries))
	}

	if w := get(t, srv, "/api/empires/atlantis"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown empire, got %d", w.Code)
	}
}

func TestHandleReport(t *testing.T) {
	srv := testServer(t)

	w := get(t, srv, "/api/report?year=100")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var r coexist.YearReport
	if err := json.NewDecoder(w.Body).Decode(&r); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, id := range []string{"han-dynasty", "parthian-empire", "roman-empire"} {
		if !slices.Contains(r.Active, id) {
			t.Errorf("expected %s active in 100 CE, got %v", id, r.Active)
		}
	}
	if r.Dominant == nil || r.Dominant.Size != 1 {
		t.Errorf("expected a dominant entity of size 1, got %+v", r.Dominant)
	}

	if w := get(t, srv, "/api/report?year=soon"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad year, got %d", w.Code)
	}
}

func TestHandlePlacesByYear(t *testing.T) {
	srv := testServer(t)

	w := get(t, srv, "/api/places?year=1000")
	var named []store.NamedPlace
	if err := json.NewDecoder(w.Body).Decode(&named); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	i := slices.IndexFunc(named, func(p store.NamedPlace) bool { return p.ID == "istanbul" })
	if i < 0 || named[i].Name != "Constantinople" {
		t.Errorf("expected Constantinople in 1000 CE, got %+v", named)
	}

	w = get(t, srv, "/api/places")
	var all []model.Place
	if err := json.NewDecoder(w.Body).Decode(&all); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(all) < len(named) {
		t.Errorf("unfiltered places (%d) fewer than filtered (%d)", len(all), len(named))
	}
}

func TestHandleChapters(t *testing.T) {
	w := get(t, testServer(t), "/api/chapters")
	var chapters []timeline.Chapter
	if err := json.NewDecoder(w.Body).Decode(&chapters); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(chapters) != len(timeline.Chapters) || chapters[0].Year != -3000 {
		t.Errorf("unexpected chapters %+v", chapters)
	}
}

func TestIndexServed(t *testing.T) {
	w := get(t, testServer(t), "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/ws") {
		t.Errorf("expected the map client, got %d", w.Code)
	}
}

func TestWebsocketStreamsSceneAndAcceptsControls(t *testing.T) {
	srv := testServer(t)
	sess := atlas.NewSession(srv.Store, atlas.Options{Clock: frame.NewManualClock(time.Unix(0, 0))}, nil)
	sess.Start(context.Background())
	sess.Loop().Tick()
	srv.Session = sess

	h, err := srv.Handler()
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var layers []string
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}
		if m.Type == MsgStatus {
			break
		}
		if m.Type == MsgCommand && m.Command.Op == render.OpAddLayer {
			layers = append(layers, m.Command.ID)
		}
	}
	if !slices.Contains(layers, atlas.PlaceLayerID) || !slices.Contains(layers, atlas.NameLayerID) {
		t.Errorf("snapshot missing label layers: %v", layers)
	}

	if err := conn.WriteJSON(atlas.Control{Type: "rewind"}); err != nil {
		t.Fatal(err)
	}
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if m.Type == MsgError {
			break
		}
	}

	if err := conn.WriteJSON(atlas.Control{Type: atlas.ControlYear, Year: 1000}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for sess.Status().Year != 1000 {
		if time.Now().After(deadline) {
			t.Fatal("year control never applied")
		}
		sess.Loop().Tick()
		time.Sleep(5 * time.Millisecond)
	}
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for status: %v", err)
		}
		if m.Type == MsgStatus && m.Status.Year == 1000 {
			if m.Status.Label != "1000 CE" {
				t.Errorf("unexpected label %q", m.Status.Label)
			}
			break
		}
	}
}
