package surfaces

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// defaultStartDelay separates a click-originated load request from its start
// request, giving the loaded module time to finish its own setup before
// animation begins.
const defaultStartDelay = 400 * time.Millisecond

// Node is one clickable entry on the progression strip. Only the ten main
// levels appear as nodes; a current bonus level lights the node of its
// preceding integer level.
type Node struct {
	Level     int    `json:"level"`
	Label     string `json:"label"`
	Sprite    string `json:"sprite"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
	Locked    bool   `json:"locked"`
}

// ProgressionState is the strip's full visible state.
type ProgressionState struct {
	Nodes       []Node  `json:"nodes"`
	FillPercent float64 `json:"fillPercent"`
}

// Progression renders the level-progression strip and originates level
// change requests from node clicks. Subscribed events: level:loaded,
// level:completed, phase:changed.
type Progression struct {
	bus        *eventbus.Bus
	state      *gamestate.State
	presenter  Presenter
	confirmer  Confirmer
	startDelay time.Duration

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

// NewProgression wires the strip to the bus. presenter and confirmer may be
// nil; a nil confirmer answers yes.
func NewProgression(bus *eventbus.Bus, state *gamestate.State, presenter Presenter, confirmer Confirmer) *Progression {
	p := &Progression{
		bus:        bus,
		state:      state,
		presenter:  presenter,
		confirmer:  confirmer,
		startDelay: defaultStartDelay,
	}
	p.subs = []*eventbus.Subscription{
		bus.Subscribe(eventbus.KindLevelLoaded, func(any) { p.render() }),
		bus.Subscribe(eventbus.KindLevelCompleted, func(any) { p.render() }),
		bus.Subscribe(eventbus.KindPhaseChanged, func(any) { p.render() }),
	}
	p.render()
	return p
}

// SetStartDelay overrides the click-to-start delay; used by tests.
func (p *Progression) SetStartDelay(d time.Duration) {
	p.mu.Lock()
	p.startDelay = d
	p.mu.Unlock()
}

// Close detaches the strip from the bus.
func (p *Progression) Close() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	for _, sub := range subs {
		p.bus.Unsubscribe(sub)
	}
}

// ClickNode handles a user click on the node for an integer level. Locked
// nodes and the currently playing node are no-ops; anything else asks for
// confirmation and, when confirmed, requests a load followed by a delayed
// start.
func (p *Progression) ClickNode(level int) {
	target := float64(level)

	if !p.state.Unlocked(target) {
		return
	}
	if p.isCurrentlyPlaying(level) {
		return
	}

	msg := fmt.Sprintf("Restart level %s?", levels.FormatNumber(target))
	if p.confirmer != nil && !p.confirmer.Confirm(msg) {
		return
	}

	logrus.WithField("level", levels.FormatNumber(target)).Info("progression: level change requested")
	p.bus.Publish(eventbus.KindLevelLoadRequested, eventbus.LevelRequest{Level: target})

	p.mu.Lock()
	delay := p.startDelay
	p.mu.Unlock()
	time.AfterFunc(delay, func() {
		p.bus.Publish(eventbus.KindLevelStartRequested, eventbus.LevelRequest{Level: target})
	})
}

// isCurrentlyPlaying reports whether the node belongs to the level in play.
// A bonus level in play maps onto its preceding integer node.
func (p *Progression) isCurrentlyPlaying(level int) bool {
	switch p.state.Phase() {
	case gamestate.PhaseLoading, gamestate.PhasePlaying, gamestate.PhasePaused:
		return levels.IndicatorLevel(p.state.CurrentLevel()) == level
	default:
		return false
	}
}

// render re-derives the full strip state from shared state.
func (p *Progression) render() {
	st := p.deriveState()
	if p.presenter != nil {
		p.presenter.Present(SurfaceProgression, st)
	}
}

func (p *Progression) deriveState() ProgressionState {
	current := 0
	switch p.state.Phase() {
	case gamestate.PhaseLoading, gamestate.PhasePlaying, gamestate.PhasePaused:
		current = levels.IndicatorLevel(p.state.CurrentLevel())
	}

	var nodes []Node
	for _, cfg := range levels.Main() {
		n := int(cfg.Number)
		nodes = append(nodes, Node{
			Level:     n,
			Label:     levels.FormatNumber(cfg.Number),
			Sprite:    cfg.Sprite,
			Completed: p.state.IsCompleted(cfg.Number),
			Current:   n == current,
			Locked:    !p.state.Unlocked(cfg.Number),
		})
	}

	return ProgressionState{
		Nodes:       nodes,
		FillPercent: levels.FillPercent(p.state.CompletedMainCount()),
	}
}
