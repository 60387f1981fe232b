package minigames

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

const (
	reflexTimeLimit  = 20 * time.Second
	reflexCycle      = 2 * time.Second
	reflexWindow     = 500 * time.Millisecond
	reflexTargetHits = 5
	reflexHitScore   = 250
	reflexMissCost   = 50
)

// Reflex is the arcade-era game: a light blinks on for a short window every
// cycle, and the player must hit Space while it is lit. Five hits win; the
// timer running out settles with whatever was scored if the target was met.
type Reflex struct {
	bus *eventbus.Bus

	mu      sync.Mutex
	cfg     levels.Config
	elapsed time.Duration
	hits    int
	misses  int
	running bool
	ended   bool
	keySub  *eventbus.Subscription
}

// ReflexFactory returns the factory producing reflex instances wired to the
// bus.
func ReflexFactory(bus *eventbus.Bus) game.Factory {
	return func(levels.Config) game.Instance {
		return &Reflex{bus: bus}
	}
}

func (r *Reflex) Init(cfg levels.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.elapsed = 0
	r.hits = 0
	r.misses = 0
	r.ended = false
	return nil
}

func (r *Reflex) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	if r.keySub == nil {
		r.keySub = r.bus.Subscribe(eventbus.KindInputKey, r.onKey)
	}
	return nil
}

func (r *Reflex) Pause() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Reflex) Resume() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
}

// Stop detaches from the bus. Safe to call multiple times.
func (r *Reflex) Stop() {
	r.mu.Lock()
	sub := r.keySub
	r.keySub = nil
	r.running = false
	r.mu.Unlock()

	if sub != nil {
		r.bus.Unsubscribe(sub)
	}
}

func (r *Reflex) Destroy() {
	r.Stop()
}

// Lit reports whether the target window is currently open.
func (r *Reflex) Lit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.litLocked()
}

// litLocked: the window opens at the start of every cycle. Caller holds r.mu.
func (r *Reflex) litLocked() bool {
	return r.elapsed%reflexCycle < reflexWindow
}

func (r *Reflex) Tick(dt time.Duration) {
	r.mu.Lock()
	if !r.running || r.ended {
		r.mu.Unlock()
		return
	}
	r.elapsed += dt
	timedOut := r.elapsed >= reflexTimeLimit
	won := r.hits >= reflexTargetHits
	r.mu.Unlock()

	if won {
		r.finish(true)
	} else if timedOut {
		r.finish(false)
	}
}

func (r *Reflex) onKey(payload any) {
	key, ok := payload.(eventbus.KeyInput)
	if !ok || key.Code != "Space" {
		return
	}

	r.mu.Lock()
	if !r.running || r.ended {
		r.mu.Unlock()
		return
	}
	if r.litLocked() {
		r.hits++
	} else {
		r.misses++
	}
	won := r.hits >= reflexTargetHits
	r.mu.Unlock()

	if won {
		r.finish(true)
	}
}

func (r *Reflex) finish(success bool) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.ended = true
	level := r.cfg.Number
	score := 0
	if success {
		score = r.hits*reflexHitScore - r.misses*reflexMissCost
		if score < 0 {
			score = 0
		}
	}
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"level":   levels.FormatNumber(level),
		"success": success,
		"score":   score,
	}).Info("reflex minigame ended")

	r.bus.Publish(eventbus.KindMinigameEnded, eventbus.MinigameEnded{
		Level:   level,
		Success: success,
		Score:   score,
	})
}
