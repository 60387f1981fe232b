package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// Placeholder is the stand-in game installed when a level's real logic is
// unavailable. It obeys the full lifecycle contract: after start, the first
// key press ends the minigame successfully with a score in [1000,1500), so a
// broken or unimplemented level never leaves the player on a dead screen.
type Placeholder struct {
	bus *eventbus.Bus

	mu      sync.Mutex
	cfg     levels.Config
	label   string
	running bool
	ended   bool
	keySub  *eventbus.Subscription
	rng     *rand.Rand
}

// PlaceholderFactory returns a Factory producing placeholder instances wired
// to the given bus.
func PlaceholderFactory(bus *eventbus.Bus) Factory {
	return func(cfg levels.Config) Instance {
		return &Placeholder{
			bus: bus,
			rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		}
	}
}

// Init records the level descriptor and derives the visible label.
func (p *Placeholder) Init(cfg levels.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.label = "UNDER CONSTRUCTION — " + cfg.Title
	return nil
}

// Label is the text the placeholder shows instead of a real game.
func (p *Placeholder) Label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.label
}

// Start begins listening for the key press that ends the stand-in game.
func (p *Placeholder) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	if p.keySub == nil {
		p.keySub = p.bus.Subscribe(eventbus.KindInputKey, p.onKey)
	}
	return nil
}

// Pause suspends key handling.
func (p *Placeholder) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// Resume re-enables key handling.
func (p *Placeholder) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
}

// Stop detaches from the bus. Safe to call multiple times.
func (p *Placeholder) Stop() {
	p.mu.Lock()
	sub := p.keySub
	p.keySub = nil
	p.running = false
	p.mu.Unlock()

	if sub != nil {
		p.bus.Unsubscribe(sub)
	}
}

// Destroy performs the same cleanup as Stop.
func (p *Placeholder) Destroy() {
	p.Stop()
}

func (p *Placeholder) onKey(payload any) {
	p.mu.Lock()
	if !p.running || p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	level := p.cfg.Number
	score := 1000 + p.rng.Intn(500)
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"level": levels.FormatNumber(level),
		"score": score,
	}).Info("placeholder minigame ended")

	p.bus.Publish(eventbus.KindMinigameEnded, eventbus.MinigameEnded{
		Level:   level,
		Success: true,
		Score:   score,
	})
}
