package engrave

import (
	"testing"
	"time"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/render"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	loop  *frame.Loop
	clock *frame.ManualClock
	scene *render.Scene
	rec   *render.Recorder
	fx    *Effect
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clock := frame.NewManualClock(epoch)
	loop := frame.New(clock, 60)
	rec := &render.Recorder{}
	scene := render.NewScene(rec)
	return &fixture{loop: loop, clock: clock, scene: scene, rec: rec, fx: New(loop, scene, nil)}
}

func (f *fixture) step(d time.Duration) {
	f.clock.Advance(d)
	f.loop.Tick()
}

func (f *fixture) opacity(t *testing.T) float64 {
	t.Helper()
	v, ok := f.scene.PaintValue(LayerID, propOpacity)
	if !ok {
		t.Fatal("text-opacity not set")
	}
	return v.(float64)
}

var rome = Target{ID: "rome", Name: "Roman Empire", Centroid: geo.Position{12.5, 41.9}}
var han = Target{ID: "han", Name: "Han Dynasty", Centroid: geo.Position{110, 33}}

func TestFullCycle(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, StartDelay)
	if !f.fx.Pending() || f.fx.Phase() != Idle {
		t.Fatal("expected a pending start")
	}

	f.step(StartDelay)
	if f.fx.Phase() != FadeIn {
		t.Fatalf("expected fade-in, got %v", f.fx.Phase())
	}
	if got := f.opacity(t); got != 0 {
		t.Errorf("expected label to start transparent, got %v", got)
	}
	data, _ := f.scene.SourceData(SourceID)
	if name := data.Features[0].Properties["name"]; name != "ROMAN EMPIRE" {
		t.Errorf("expected upper-cased label, got %v", name)
	}
	if pt := data.Features[0].Geometry.Point; pt != rome.Centroid {
		t.Errorf("expected label at centroid, got %v", pt)
	}

	f.step(FadeInDuration)
	if f.fx.Phase() != Hold {
		t.Fatalf("expected hold, got %v", f.fx.Phase())
	}
	if got := f.opacity(t); got != OpacityPeak {
		t.Errorf("expected peak opacity %v, got %v", OpacityPeak, got)
	}
	if v, _ := f.scene.PaintValue(LayerID, propHaloBlur); v.(float64) != HaloBlurPeak {
		t.Errorf("expected halo blur %v, got %v", HaloBlurPeak, v)
	}

	f.step(HoldDuration / 2)
	if f.fx.Phase() != Hold || f.opacity(t) != OpacityPeak {
		t.Error("expected no change during hold")
	}
	f.step(HoldDuration / 2)
	if f.fx.Phase() != FadeOut {
		t.Fatalf("expected fade-out, got %v", f.fx.Phase())
	}

	f.step(FadeOutDuration / 2)
	if got := f.opacity(t); got <= 0 || got >= OpacityPeak {
		t.Errorf("expected partial opacity mid fade-out, got %v", got)
	}
	f.step(FadeOutDuration / 2)
	if f.fx.Phase() != Idle {
		t.Errorf("expected idle after fade-out, got %v", f.fx.Phase())
	}
	if f.scene.HasLayer(LayerID) || f.scene.HasSource(SourceID) {
		t.Error("expected label resources removed")
	}
	if _, ok := f.fx.Target(); ok {
		t.Error("expected no target when idle")
	}
	f.step(time.Second)
	if f.loop.Busy() {
		t.Error("expected loop idle after the cycle")
	}
}

func TestRescheduleBeforeStartKeepsOnlySecond(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, StartDelay)
	f.step(400 * time.Millisecond)
	f.fx.ScheduleStart(han, StartDelay)
	f.step(400 * time.Millisecond)
	if f.rec.Count(render.OpAddLayer, LayerID) != 0 {
		t.Fatal("first engrave started despite being superseded")
	}
	f.step(400 * time.Millisecond)

	if n := f.rec.Count(render.OpAddLayer, LayerID); n != 1 {
		t.Fatalf("expected exactly one label, got %d", n)
	}
	if tg, ok := f.fx.Target(); !ok || tg.ID != "han" {
		t.Errorf("expected han engraved, got %+v", tg)
	}
}

func TestRescheduleWhileRunningTearsDownFirst(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, 0)
	f.step(0)
	f.step(300 * time.Millisecond)
	if f.fx.Phase() != FadeIn {
		t.Fatalf("expected rome fading in, got %v", f.fx.Phase())
	}

	f.fx.ScheduleStart(han, StartDelay)
	if f.scene.HasLayer(LayerID) {
		t.Error("expected previous label removed immediately")
	}
	if f.fx.Phase() != Idle {
		t.Errorf("expected idle while the next start is pending, got %v", f.fx.Phase())
	}

	f.step(StartDelay)
	layers := 0
	for _, id := range f.scene.Layers() {
		if id == LayerID {
			layers++
		}
	}
	if layers != 1 {
		t.Errorf("expected one label layer, got %d", layers)
	}
	data, _ := f.scene.SourceData(SourceID)
	if name := data.Features[0].Properties["name"]; name != "HAN DYNASTY" {
		t.Errorf("expected second target's label, got %v", name)
	}
}

func TestStopFromEveryPhase(t *testing.T) {
	for _, advance := range []time.Duration{0, 400 * time.Millisecond, 1500 * time.Millisecond, 3500 * time.Millisecond} {
		f := setup(t)
		f.fx.ScheduleStart(rome, 0)
		f.step(0)
		f.step(advance)
		f.fx.Stop()
		if f.fx.Phase() != Idle {
			t.Errorf("after %v: expected idle, got %v", advance, f.fx.Phase())
		}
		if f.scene.HasLayer(LayerID) || f.scene.HasSource(SourceID) {
			t.Errorf("after %v: label left behind", advance)
		}
		f.rec.Reset()
		f.step(time.Second)
		if n := len(f.rec.Commands()); n != 0 {
			t.Errorf("after %v: %d commands after stop", advance, n)
		}
	}
}

func TestStopCancelsPendingStart(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, StartDelay)
	f.fx.Stop()
	f.step(2 * StartDelay)
	if f.rec.Count(render.OpAddLayer, "") != 0 {
		t.Error("pending start fired after stop")
	}
}

func TestDisposeIgnoresLaterCalls(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, 0)
	f.step(0)
	f.fx.Dispose()
	f.fx.ScheduleStart(han, 0)
	f.step(time.Second)
	if f.scene.HasLayer(LayerID) {
		t.Error("label drawn after dispose")
	}
	if f.fx.Pending() {
		t.Error("expected no pending start after dispose")
	}
}

func TestLayerRemovedExternally(t *testing.T) {
	f := setup(t)
	f.fx.ScheduleStart(rome, 0)
	f.step(0)
	if err := f.scene.RemoveLayer(LayerID); err != nil {
		t.Fatal(err)
	}
	f.step(100 * time.Millisecond)
	if f.fx.Phase() != Idle {
		t.Errorf("expected idle once the layer vanished, got %v", f.fx.Phase())
	}
	if f.scene.HasSource(SourceID) {
		t.Error("expected source cleaned up")
	}
}
