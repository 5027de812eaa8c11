package atlas

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/model"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/timeline"
)

type data struct {
	*catalog
	onLoad []func(string, error)
	places []model.Place
}

func (d *data) OnLoad(fn func(string, error)) { d.onLoad = append(d.onLoad, fn) }

func (d *data) Places(context.Context) ([]model.Place, error) { return d.places, nil }

func newSession(t *testing.T, lazy bool, opts Options) (*Session, *data, *frame.ManualClock) {
	t.Helper()
	clock := frame.NewManualClock(epoch)
	opts.Clock = clock
	d := &data{
		catalog: newCatalog(lazy),
		places: []model.Place{{
			ID:          "byzantium",
			Coordinates: geo.Position{28.97, 41.01},
			Names: []model.PlaceName{
				{YearRange: model.YearRange{StartYear: -660, EndYear: 329}, Name: "Byzantium"},
				{YearRange: model.YearRange{StartYear: 330, EndYear: 1452}, Name: "Constantinople"},
			},
		}},
	}
	s := NewSession(d, opts, nil)
	s.Start(context.Background())
	s.Loop().Tick()
	return s, d, clock
}

func send(t *testing.T, s *Session, c Control) {
	t.Helper()
	if err := s.Send(c); err != nil {
		t.Fatal(err)
	}
	s.Loop().Tick()
}

func TestSessionYearControl(t *testing.T) {
	s, _, _ := newSession(t, false, Options{})

	send(t, s, Control{Type: ControlYear, Year: 100.4})
	st := s.Status()
	if st.Year != 100.4 || st.Label != "100 CE" {
		t.Errorf("unexpected year in status %+v", st)
	}
	if !slices.Equal(st.Visible, []string{"rome", "han"}) {
		t.Errorf("expected rome and han visible, got %v", st.Visible)
	}

	places, _ := s.Scene().SourceData(PlaceSourceID)
	if len(places.Features) != 1 || places.Features[0].Properties["name"] != "Byzantium" {
		t.Errorf("unexpected place labels %+v", places.Features)
	}

	send(t, s, Control{Type: ControlYear, Year: 5000})
	if got := s.Status().Year; got != timeline.MaxYear {
		t.Errorf("expected year clamped to %d, got %v", timeline.MaxYear, got)
	}
}

func TestSessionRejectsBadControls(t *testing.T) {
	s, _, _ := newSession(t, false, Options{})
	if err := s.Send(Control{Type: "rewind"}); err == nil {
		t.Error("expected unknown control to fail")
	}
	if err := s.Send(Control{Type: ControlSpeed, Speed: 0}); err == nil {
		t.Error("expected zero speed to fail")
	}
}

func TestSessionPlaybackAnnouncesChapter(t *testing.T) {
	s, _, clock := newSession(t, false, Options{
		Range: timeline.Range{Min: -520, Max: 0},
		Speed: 100,
	})
	var entered []string
	s.OnChapter(func(c timeline.Chapter) { entered = append(entered, c.Title) })

	send(t, s, Control{Type: ControlPlay})
	if !s.Status().Playing {
		t.Fatal("expected playing status")
	}
	for range 20 {
		clock.Advance(500 * time.Millisecond)
		s.Loop().Tick()
	}
	if !slices.Equal(entered, []string{"The Classical World"}) {
		t.Errorf("expected one chapter entry, got %v", entered)
	}

	send(t, s, Control{Type: ControlPause})
	st := s.Status()
	if st.Playing {
		t.Error("still playing after pause")
	}
	clock.Advance(time.Second)
	s.Loop().Tick()
	if s.Status().Year != st.Year {
		t.Error("year moved while paused")
	}
}

func TestSessionSeekDoesNotAnnounceChapter(t *testing.T) {
	s, _, _ := newSession(t, false, Options{})
	var entered int
	s.OnChapter(func(timeline.Chapter) { entered++ })

	send(t, s, Control{Type: ControlYear, Year: 600})
	if entered != 0 {
		t.Errorf("manual seek announced %d chapters", entered)
	}
	if got := s.Status().Chapter; got != timeline.ChapterIndex(600) {
		t.Errorf("expected chapter index %d, got %d", timeline.ChapterIndex(600), got)
	}
}

func TestSessionLoadNotification(t *testing.T) {
	s, d, _ := newSession(t, true, Options{Year: 300})
	if got := s.Status().Visible; len(got) != 0 {
		t.Fatalf("nothing is resident yet, got %v", got)
	}

	d.resident["rome"] = true
	for _, fn := range d.onLoad {
		fn("rome", nil)
	}
	s.Loop().Tick()

	if got := s.Status().Visible; !slices.Equal(got, []string{"rome"}) {
		t.Errorf("expected rome visible after load, got %v", got)
	}
	if !s.Scene().HasLayer(render.FillLayerID("rome")) {
		t.Error("rome not drawn after load")
	}
}

func TestSessionFocusAndClick(t *testing.T) {
	s, _, clock := newSession(t, false, Options{Year: -300})
	var statuses []Status
	s.OnStatus(func(st Status) { statuses = append(statuses, st) })

	send(t, s, Control{Type: ControlFocus, Focus: true})
	send(t, s, Control{Type: ControlYear, Year: 300})
	if !s.Controller().Camera().Pending() {
		t.Error("expected a camera focus in focus mode")
	}
	clock.Advance(time.Second)
	s.Loop().Tick()

	send(t, s, Control{Type: ControlClick, Point: geo.Position{14, 42}})
	if got := s.Status().Selected; got != "rome" {
		t.Errorf("expected rome selected, got %q", got)
	}
	send(t, s, Control{Type: ControlClick, Point: geo.Position{-60, -40}})
	if got := s.Status().Selected; got != "" {
		t.Errorf("expected selection cleared, got %q", got)
	}
	if len(statuses) < 4 || !statuses[0].Focus {
		t.Errorf("unexpected status stream %+v", statuses)
	}
}
