// Package gamestate holds the shared state object every surface queries.
// It is passed by reference at construction time; nothing here is a hidden
// package-level global. The single current-game slot is written only by the
// module loader and read by everyone else.
package gamestate

import (
	"sort"
	"sync"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// Phase is the shell's coarse play phase.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhasePlaying Phase = "playing"
	PhasePaused  Phase = "paused"
	PhaseEnded   Phase = "ended"
)

// UnlockStore is the read-only persistent unlock lookup. It is an external
// collaborator; when absent, the session progression rule applies.
type UnlockStore interface {
	Unlocked(level float64) bool
}

// State is the shared game state. All methods are safe for concurrent use.
type State struct {
	mu           sync.RWMutex
	bus          *eventbus.Bus
	phase        Phase
	currentLevel float64
	completed    map[float64]bool
	collectibles map[levels.Era]int
	totalScore   int
	current      *game.Runner
	unlocks      UnlockStore
}

// New creates an idle state bound to the bus. unlocks may be nil.
func New(bus *eventbus.Bus, unlocks UnlockStore) *State {
	return &State{
		bus:          bus,
		phase:        PhaseIdle,
		completed:    make(map[float64]bool),
		collectibles: make(map[levels.Era]int),
		unlocks:      unlocks,
	}
}

// Phase returns the current play phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// SetPhase updates the phase and announces the change on the bus.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	changed := s.phase != p
	s.phase = p
	s.mu.Unlock()

	if changed {
		s.bus.Publish(eventbus.KindPhaseChanged, eventbus.PhaseChanged{Phase: string(p)})
	}
}

// CurrentLevel returns the level currently loaded or playing; zero when none.
func (s *State) CurrentLevel() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLevel
}

// SetCurrentLevel records which level is current.
func (s *State) SetCurrentLevel(level float64) {
	s.mu.Lock()
	s.currentLevel = level
	s.mu.Unlock()
}

// MarkCompleted records a finished level.
func (s *State) MarkCompleted(level float64) {
	s.mu.Lock()
	s.completed[level] = true
	s.mu.Unlock()
}

// IsCompleted reports whether a level was finished this session.
func (s *State) IsCompleted(level float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed[level]
}

// Completed returns the completed level numbers in ascending order.
func (s *State) Completed() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, 0, len(s.completed))
	for n := range s.completed {
		out = append(out, n)
	}
	sort.Float64s(out)
	return out
}

// CompletedMainCount counts completed non-bonus levels; this number feeds
// the progression bar fill.
func (s *State) CompletedMainCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for level := range s.completed {
		if !levels.IsBonus(level) {
			n++
		}
	}
	return n
}

// AddCollectible credits one era collectible and announces it.
func (s *State) AddCollectible(era levels.Era, icon string) {
	s.mu.Lock()
	s.collectibles[era]++
	count := s.collectibles[era]
	s.mu.Unlock()

	s.bus.Publish(eventbus.KindCollectibleGained, eventbus.CollectibleGained{
		Era:   string(era),
		Icon:  icon,
		Count: count,
	})
}

// Collectibles returns a copy of the per-era collectible counts.
func (s *State) Collectibles() map[levels.Era]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[levels.Era]int, len(s.collectibles))
	for k, v := range s.collectibles {
		out[k] = v
	}
	return out
}

// TotalCollectibles sums collectibles across eras.
func (s *State) TotalCollectibles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.collectibles {
		n += v
	}
	return n
}

// TotalScore returns the session score.
func (s *State) TotalScore() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalScore
}

// AddScore credits delta to the session score and announces the new total.
func (s *State) AddScore(delta int) {
	s.mu.Lock()
	s.totalScore += delta
	total := s.totalScore
	s.mu.Unlock()

	s.bus.Publish(eventbus.KindScoreChanged, eventbus.ScoreChanged{Total: total, Delta: delta})
}

// CurrentGame returns the single current game slot; nil when no level is
// installed.
func (s *State) CurrentGame() *game.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCurrentGame installs the current game. Only the module loader writes
// this slot; it returns the previous occupant so the caller can tear it down.
func (s *State) SetCurrentGame(r *game.Runner) *game.Runner {
	s.mu.Lock()
	prev := s.current
	s.current = r
	s.mu.Unlock()
	return prev
}

// Unlocked reports whether a level may be played. A configured UnlockStore
// takes precedence; otherwise the session progression rule applies: level 1
// is always open, an integer level opens when its predecessor is completed,
// and a bonus level opens when its preceding integer level is completed.
func (s *State) Unlocked(level float64) bool {
	s.mu.RLock()
	unlocks := s.unlocks
	s.mu.RUnlock()

	if unlocks != nil {
		return unlocks.Unlocked(level)
	}
	if level == 1 {
		return true
	}
	if levels.IsBonus(level) {
		return s.IsCompleted(float64(levels.IndicatorLevel(level)))
	}
	return s.IsCompleted(level - 1)
}
