// Package game defines the play lifecycle contract every level's game logic
// conforms to, and the Runner that enforces it.
package game

import (
	"time"

	"github.com/calebhart/chrono-arcade/internal/levels"
)

// Instance is the mandatory capability set of a runnable game. Instances are
// single-use: one level attempt, then destroyed.
type Instance interface {
	// Init prepares the instance for play. Callers invoke it at most once.
	Init(cfg levels.Config) error
	// Start begins play.
	Start() error
}

// Pauser is implemented by instances that support pausing.
type Pauser interface {
	Pause()
}

// Resumer is implemented by instances that can resume from pause.
type Resumer interface {
	Resume()
}

// Stopper is implemented by instances with teardown work. Stop must be safe
// to call multiple times.
type Stopper interface {
	Stop()
}

// Destroyer is implemented by instances with final cleanup beyond Stop.
type Destroyer interface {
	Destroy()
}

// Ticker is implemented by instances that want render ticks while running.
// Ticks are delivered only in the Running state.
type Ticker interface {
	Tick(dt time.Duration)
}

// Factory produces a fresh Instance for one level attempt.
type Factory func(cfg levels.Config) Instance
