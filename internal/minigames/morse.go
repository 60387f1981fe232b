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
	// morsePattern is the key sequence the player taps out. Short presses are
	// Space, long ones ShiftLeft; together they spell S-O-S.
	morseTimeLimit = 30 * time.Second
	morseBaseScore = 1500
	morseMissCost  = 100
)

var morsePattern = []string{
	"Space", "Space", "Space",
	"ShiftLeft", "ShiftLeft", "ShiftLeft",
	"Space", "Space", "Space",
}

// Morse is the telegraph-era game: tap the distress pattern before the line
// goes dead. A wrong key costs score but never resets progress.
type Morse struct {
	bus *eventbus.Bus

	mu      sync.Mutex
	cfg     levels.Config
	pos     int
	misses  int
	elapsed time.Duration
	running bool
	ended   bool
	keySub  *eventbus.Subscription
}

// MorseFactory returns the factory producing morse instances wired to the bus.
func MorseFactory(bus *eventbus.Bus) game.Factory {
	return func(levels.Config) game.Instance {
		return &Morse{bus: bus}
	}
}

func (m *Morse) Init(cfg levels.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.pos = 0
	m.misses = 0
	m.elapsed = 0
	m.ended = false
	return nil
}

func (m *Morse) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	if m.keySub == nil {
		m.keySub = m.bus.Subscribe(eventbus.KindInputKey, m.onKey)
	}
	return nil
}

func (m *Morse) Pause() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *Morse) Resume() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
}

// Stop detaches from the bus. Safe to call multiple times.
func (m *Morse) Stop() {
	m.mu.Lock()
	sub := m.keySub
	m.keySub = nil
	m.running = false
	m.mu.Unlock()

	if sub != nil {
		m.bus.Unsubscribe(sub)
	}
}

func (m *Morse) Destroy() {
	m.Stop()
}

// Tick advances the countdown; the clock only runs while the game does.
func (m *Morse) Tick(dt time.Duration) {
	m.mu.Lock()
	if !m.running || m.ended {
		m.mu.Unlock()
		return
	}
	m.elapsed += dt
	timedOut := m.elapsed >= morseTimeLimit
	m.mu.Unlock()

	if timedOut {
		m.finish(false)
	}
}

// Progress reports how many pattern positions were matched so far.
func (m *Morse) Progress() (matched, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, len(morsePattern)
}

func (m *Morse) onKey(payload any) {
	key, ok := payload.(eventbus.KeyInput)
	if !ok {
		return
	}

	m.mu.Lock()
	if !m.running || m.ended {
		m.mu.Unlock()
		return
	}
	if key.Code == morsePattern[m.pos] {
		m.pos++
	} else {
		m.misses++
	}
	done := m.pos == len(morsePattern)
	m.mu.Unlock()

	if done {
		m.finish(true)
	}
}

func (m *Morse) finish(success bool) {
	m.mu.Lock()
	if m.ended {
		m.mu.Unlock()
		return
	}
	m.ended = true
	level := m.cfg.Number
	score := 0
	if success {
		score = morseBaseScore - m.misses*morseMissCost
		if score < 0 {
			score = 0
		}
	}
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"level":   levels.FormatNumber(level),
		"success": success,
		"score":   score,
	}).Info("morse minigame ended")

	m.bus.Publish(eventbus.KindMinigameEnded, eventbus.MinigameEnded{
		Level:   level,
		Success: success,
		Score:   score,
	})
}
