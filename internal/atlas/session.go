package atlas

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/frame"
	"github.com/intelligrit/chronomap/internal/geo"
	"github.com/intelligrit/chronomap/internal/model"
	"github.com/intelligrit/chronomap/internal/playback"
	"github.com/intelligrit/chronomap/internal/render"
	"github.com/intelligrit/chronomap/internal/timeline"
)

// Data is what a session needs from the data layer. *store.Store
// satisfies it.
type Data interface {
	Catalog
	OnLoad(fn func(id string, err error))
	Places(ctx context.Context) ([]model.Place, error)
}

// ControlType names a user action.
type ControlType string

const (
	ControlYear  ControlType = "year"
	ControlPlay  ControlType = "play"
	ControlPause ControlType = "pause"
	ControlSpeed ControlType = "speed"
	ControlFocus ControlType = "focus"
	ControlClick ControlType = "click"
)

// Control is a user action sent from a client.
type Control struct {
	Type  ControlType  `json:"type"`
	Year  float64      `json:"year,omitempty"`
	Speed float64      `json:"speed,omitempty"`
	Focus bool         `json:"focus,omitempty"`
	Point geo.Position `json:"point,omitempty"`
}

// Status is the session state published to observers after every change.
type Status struct {
	Year     float64  `json:"year"`
	Label    string   `json:"label"`
	Playing  bool     `json:"playing"`
	Speed    float64  `json:"speed"`
	Focus    bool     `json:"focus"`
	Visible  []string `json:"visible"`
	Chapter  int      `json:"chapter"`
	Selected string   `json:"selected,omitempty"`
}

// Options configure a session.
type Options struct {
	Range     timeline.Range
	Speed     float64
	FrameRate int
	Focus     bool
	// Year is the starting year. Zero means the start of Range.
	Year  float64
	Clock frame.Clock
	Sinks []render.Sink
}

// Session owns one view: its loop, scene and controller, the playback
// driver and chapter tracking. Send is safe from any goroutine; hooks run
// on the loop goroutine and must not block.
type Session struct {
	data  Data
	loop  *frame.Loop
	scene *render.Scene
	ctl   *Controller
	play  *playback.Driver
	chaps *timeline.ChapterTracker
	focus bool
	log   *zap.Logger

	selected string

	mu           sync.RWMutex
	status       Status
	statusHooks  []func(Status)
	chapterHooks []func(timeline.Chapter)
}

// NewSession wires a session over data.
func NewSession(data Data, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	loop := frame.New(opts.Clock, opts.FrameRate)
	scene := render.NewScene(opts.Sinks...)
	s := &Session{
		data:  data,
		loop:  loop,
		scene: scene,
		ctl:   NewController(loop, scene, data, log),
		play:  playback.New(loop, opts.Range, opts.Speed),
		focus: opts.Focus,
		log:   log,
	}
	if opts.Year != 0 {
		s.play.Seek(opts.Year)
	}
	s.chaps = timeline.NewChapterTracker(s.play.Year())

	s.play.OnYear(s.yearChanged)
	s.play.OnState(func(bool) { s.publish() })
	s.ctl.OnSelected(func(e *model.Empire) {
		s.selected = e.ID
		log.Debug("selected", zap.String("id", e.ID))
	})
	data.OnLoad(func(id string, err error) {
		if err != nil {
			return
		}
		// An empty id means the dataset itself changed; places may have too.
		if id == "" {
			places, perr := data.Places(context.Background())
			if perr == nil {
				loop.Post(func() { s.ctl.SetPlaces(places) })
			}
		}
		loop.Post(s.ctl.LoadComplete)
		loop.Post(s.publish)
	})
	return s
}

// Loop returns the session's frame loop.
func (s *Session) Loop() *frame.Loop { return s.loop }

// Scene returns the surface clients mirror.
func (s *Session) Scene() *render.Scene { return s.scene }

// Controller returns the view controller. Use it only on the loop goroutine.
func (s *Session) Controller() *Controller { return s.ctl }

// Player returns the playback driver. Use it only on the loop goroutine.
func (s *Session) Player() *playback.Driver { return s.play }

// OnStatus registers fn to receive every published status.
func (s *Session) OnStatus(fn func(Status)) {
	s.mu.Lock()
	s.statusHooks = append(s.statusHooks, fn)
	s.mu.Unlock()
}

// OnChapter registers fn to run when playback enters a new chapter.
func (s *Session) OnChapter(fn func(timeline.Chapter)) {
	s.mu.Lock()
	s.chapterHooks = append(s.chapterHooks, fn)
	s.mu.Unlock()
}

// Status returns the last published status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Visible = slices.Clone(st.Visible)
	return st
}

// Start queues the first frame: places are read and the controller draws
// the starting year. Call Tick or Run afterwards.
func (s *Session) Start(ctx context.Context) {
	places, err := s.data.Places(ctx)
	if err != nil {
		s.log.Warn("places unavailable", zap.Error(err))
	}
	s.loop.Post(func() {
		s.ctl.SetPlaces(places)
		s.ctl.Init(State{Year: s.play.Year(), Focus: s.focus})
		s.publish()
	})
}

// Run starts the session and pumps frames until ctx is done. The
// controller is disposed and the loop closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.Start(ctx)
	err := s.loop.Run(ctx)
	s.ctl.Dispose()
	s.loop.Close()
	return err
}

// Send queues a control for the loop goroutine.
func (s *Session) Send(c Control) error {
	switch c.Type {
	case ControlYear, ControlPlay, ControlPause, ControlFocus, ControlClick:
	case ControlSpeed:
		if c.Speed <= 0 {
			return fmt.Errorf("speed must be positive, got %v", c.Speed)
		}
	default:
		return fmt.Errorf("unknown control %q", c.Type)
	}
	s.loop.Post(func() { s.apply(c) })
	return nil
}

func (s *Session) apply(c Control) {
	switch c.Type {
	case ControlYear:
		s.play.Seek(c.Year)
	case ControlPlay:
		s.play.Play()
	case ControlPause:
		s.play.Pause()
	case ControlSpeed:
		s.play.SetSpeed(c.Speed)
	case ControlFocus:
		s.focus = c.Focus
		s.ctl.Update(State{Year: s.play.Year(), Focus: s.focus})
	case ControlClick:
		if _, ok := s.ctl.Select(c.Point); !ok {
			s.selected = ""
		}
	}
	s.publish()
}

func (s *Session) yearChanged(year float64) {
	if ch, ok := s.chaps.Observe(year, s.play.Playing()); ok {
		s.log.Info("chapter", zap.String("title", ch.Title), zap.Int("year", ch.Year))
		s.mu.RLock()
		hooks := slices.Clone(s.chapterHooks)
		s.mu.RUnlock()
		for _, fn := range hooks {
			fn(ch)
		}
	}
	s.ctl.Update(State{Year: year, Focus: s.focus})
	s.publish()
}

func (s *Session) publish() {
	st := Status{
		Year:     s.play.Year(),
		Label:    timeline.FormatYear(s.play.Year()),
		Playing:  s.play.Playing(),
		Speed:    s.play.Speed(),
		Focus:    s.focus,
		Visible:  s.ctl.Visible(),
		Chapter:  s.chaps.Current(),
		Selected: s.selected,
	}
	s.mu.Lock()
	s.status = st
	hooks := slices.Clone(s.statusHooks)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(st)
	}
}
