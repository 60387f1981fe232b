package surfaces

import (
	"sync"
	"time"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// pulseDuration is how long the score pulse highlight stays lit.
const pulseDuration = 800 * time.Millisecond

// StatusBarState is the status bar's full visible state, rebuilt on every
// subscribed event.
type StatusBarState struct {
	LevelLabel   string         `json:"levelLabel"`
	Title        string         `json:"title"`
	Year         int            `json:"year"`
	Era          string         `json:"era"`
	Phase        string         `json:"phase"`
	ScoreLabel   string         `json:"scoreLabel"`
	Collectibles map[string]int `json:"collectibles"`
	ScorePulse   bool           `json:"scorePulse"`
}

// StatusBar shows the current level, phase, score and collectibles.
// Subscribed events: phase:changed, level:loaded, score:changed,
// collectible:gained.
type StatusBar struct {
	bus       *eventbus.Bus
	state     *gamestate.State
	presenter Presenter

	mu         sync.Mutex
	pulse      bool
	pulseTimer *time.Timer
	subs       []*eventbus.Subscription
}

// NewStatusBar wires the surface to the bus. presenter may be nil.
func NewStatusBar(bus *eventbus.Bus, state *gamestate.State, presenter Presenter) *StatusBar {
	s := &StatusBar{bus: bus, state: state, presenter: presenter}
	s.subs = []*eventbus.Subscription{
		bus.Subscribe(eventbus.KindPhaseChanged, func(any) { s.render() }),
		bus.Subscribe(eventbus.KindLevelLoaded, func(any) { s.render() }),
		bus.Subscribe(eventbus.KindScoreChanged, func(any) { s.onScore() }),
		bus.Subscribe(eventbus.KindCollectibleGained, func(any) { s.render() }),
	}
	s.render()
	return s
}

// Close detaches the surface from the bus. The surface holds nothing
// authoritative, so it can be recreated later without loss.
func (s *StatusBar) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	if s.pulseTimer != nil {
		s.pulseTimer.Stop()
		s.pulseTimer = nil
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.bus.Unsubscribe(sub)
	}
}

// onScore lights the pulse flag and schedules its clear. A newer score
// supersedes the pending timer rather than stacking a second one.
func (s *StatusBar) onScore() {
	s.mu.Lock()
	s.pulse = true
	if s.pulseTimer != nil {
		s.pulseTimer.Stop()
	}
	s.pulseTimer = time.AfterFunc(pulseDuration, func() {
		s.mu.Lock()
		s.pulse = false
		s.mu.Unlock()
		s.render()
	})
	s.mu.Unlock()
	s.render()
}

// render re-derives the full visible state and hands it to the presenter.
func (s *StatusBar) render() {
	st := s.deriveState()
	if s.presenter != nil {
		s.presenter.Present(SurfaceStatusBar, st)
	}
}

func (s *StatusBar) deriveState() StatusBarState {
	s.mu.Lock()
	pulse := s.pulse
	s.mu.Unlock()

	st := StatusBarState{
		Phase:        string(s.state.Phase()),
		ScoreLabel:   levels.FormatScore(s.state.TotalScore()),
		Collectibles: make(map[string]int),
		ScorePulse:   pulse,
	}
	for era, count := range s.state.Collectibles() {
		st.Collectibles[string(era)] = count
	}

	if cfg, ok := levels.Lookup(s.state.CurrentLevel()); ok {
		st.LevelLabel = levels.FormatNumber(cfg.Number)
		st.Title = cfg.Title
		st.Year = cfg.Year
		st.Era = string(cfg.Era)
	}
	return st
}
