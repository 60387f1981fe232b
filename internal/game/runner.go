package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/levels"
)

// State is a Runner's lifecycle state.
type State string

const (
	StateCreated     State = "created"
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StatePaused      State = "paused"
	StateStopped     State = "stopped"
	StateDestroyed   State = "destroyed"
)

// tickInterval is the render tick cadence while an instance is Running.
const tickInterval = 16 * time.Millisecond

// Runner owns one Instance for its lifetime and enforces the state machine
// Created → Initialized → Running ⇄ Paused → Stopped → Destroyed. Optional
// capabilities are invoked only when the instance implements them. The render
// tick loop runs only while the state is Running and is cancelled on every
// transition out of it.
type Runner struct {
	mu    sync.Mutex
	state State
	inst  Instance
	cfg   levels.Config

	tickStop chan struct{}
	log      *logrus.Entry
}

// NewRunner wraps an instance for the given level. The instance starts in
// the Created state; call Init before Start.
func NewRunner(inst Instance, cfg levels.Config) *Runner {
	return &Runner{
		state: StateCreated,
		inst:  inst,
		cfg:   cfg,
		log:   logrus.WithField("level", levels.FormatNumber(cfg.Number)),
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Config returns the level descriptor the instance was created for.
func (r *Runner) Config() levels.Config {
	return r.cfg
}

// Init moves Created → Initialized.
func (r *Runner) Init() error {
	r.mu.Lock()
	if r.state != StateCreated {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("game: init from %s", state)
	}
	r.state = StateInitialized
	r.mu.Unlock()

	if err := r.inst.Init(r.cfg); err != nil {
		return fmt.Errorf("game: init: %w", err)
	}
	return nil
}

// Start moves Initialized → Running and begins the render tick loop when the
// instance wants ticks.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.state != StateInitialized {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("game: start from %s", state)
	}
	r.state = StateRunning
	r.startTickLoopLocked()
	r.mu.Unlock()

	if err := r.inst.Start(); err != nil {
		r.Stop()
		return fmt.Errorf("game: start: %w", err)
	}
	return nil
}

// Pause moves Running → Paused and cancels the pending render tick.
func (r *Runner) Pause() {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return
	}
	r.state = StatePaused
	r.cancelTickLoopLocked()
	r.mu.Unlock()

	if p, ok := r.inst.(Pauser); ok {
		p.Pause()
	}
}

// Resume moves Paused → Running and restarts the render tick loop.
func (r *Runner) Resume() {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return
	}
	r.state = StateRunning
	r.startTickLoopLocked()
	r.mu.Unlock()

	if res, ok := r.inst.(Resumer); ok {
		res.Resume()
	}
}

// Stop moves Running or Paused → Stopped. Safe to call multiple times; the
// instance's own Stop runs once.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state != StateRunning && r.state != StatePaused && r.state != StateInitialized {
		r.mu.Unlock()
		return
	}
	r.state = StateStopped
	r.cancelTickLoopLocked()
	r.mu.Unlock()

	if s, ok := r.inst.(Stopper); ok {
		s.Stop()
	}
}

// Destroy moves to Destroyed. When the instance was not stopped yet, the
// same teardown as Stop runs first, so Stop-then-Destroy and a bare Destroy
// produce identical side effects.
func (r *Runner) Destroy() {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return
	}
	needStop := r.state != StateStopped
	r.mu.Unlock()

	if needStop {
		r.Stop()
	}

	r.mu.Lock()
	r.state = StateDestroyed
	r.mu.Unlock()

	if d, ok := r.inst.(Destroyer); ok {
		d.Destroy()
	}
	r.log.Debug("game destroyed")
}

// startTickLoopLocked launches the tick goroutine. Caller holds r.mu.
func (r *Runner) startTickLoopLocked() {
	ticker, ok := r.inst.(Ticker)
	if !ok {
		return
	}
	stop := make(chan struct{})
	r.tickStop = stop

	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		last := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-t.C:
				// A tick racing the cancel must not reach the instance
				// once the runner left Running.
				r.mu.Lock()
				running := r.state == StateRunning && r.tickStop == stop
				r.mu.Unlock()
				if !running {
					return
				}
				ticker.Tick(now.Sub(last))
				last = now
			}
		}
	}()
}

// cancelTickLoopLocked stops the tick goroutine. Caller holds r.mu.
func (r *Runner) cancelTickLoopLocked() {
	if r.tickStop != nil {
		close(r.tickStop)
		r.tickStop = nil
	}
}
