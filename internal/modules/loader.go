package modules

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// defaultGrace bounds how long a load waits for a fetched module to announce
// its registration. Modules normally register synchronously during Execute;
// the wait only matters for the ones that defer it.
const defaultGrace = 150 * time.Millisecond

// Loader resolves a level to a running game instance. One load walks
// CHECK_REGISTRY → INSTANTIATE on a hit, or CHECK_REGISTRY → FETCH →
// (registration wait) → INSTANTIATE / FALLBACK on a miss. A load never fails
// from the caller's point of view: fetch or execution trouble degrades to
// the placeholder game.
//
// Overlapping load requests are serialized by a mutex; each load runs its
// full sequence before the next begins, and the last load to complete owns
// the current-game slot.
type Loader struct {
	mu          sync.Mutex
	registry    *Registry
	fetcher     Fetcher
	bus         *eventbus.Bus
	state       *gamestate.State
	placeholder game.Factory
	grace       time.Duration

	// The single injected resource slot: the VM of the most recently
	// fetched module. Replaced, never accumulated.
	vm   *VM
	vmID string
}

// Option adjusts loader construction.
type Option func(*Loader)

// WithGrace overrides the registration wait bound.
func WithGrace(d time.Duration) Option {
	return func(l *Loader) { l.grace = d }
}

// NewLoader builds a loader around an injected registry and fetcher.
// fetcher may be nil, in which case every registry miss falls back to the
// placeholder immediately.
func NewLoader(registry *Registry, fetcher Fetcher, bus *eventbus.Bus, state *gamestate.State, opts ...Option) *Loader {
	l := &Loader{
		registry:    registry,
		fetcher:     fetcher,
		bus:         bus,
		state:       state,
		placeholder: game.PlaceholderFactory(bus),
		grace:       defaultGrace,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load produces a running-ready game instance for the level: the previous
// current game is destroyed, the new instance is installed as the sole
// current-game reference and initialized, and a level-loaded event is
// published. The returned runner is never nil.
func (l *Loader) Load(ctx context.Context, cfg levels.Config) *game.Runner {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := cfg.GameID()
	log := logrus.WithField("game", id)

	if !l.registry.Has(id) {
		l.fetchAndAwait(ctx, id, log)
	}

	factory, ok := l.registry.Get(id)
	placeholder := !ok
	if placeholder {
		log.Warn("module loader: no factory after fetch, using placeholder")
		factory = l.placeholder
	}

	return l.instantiate(cfg, factory, placeholder)
}

// fetchAndAwait runs the FETCH leg: discard the previously injected module,
// fetch and execute the new one, then wait for its registration signal up to
// the grace bound. Errors are logged, never returned; the caller re-checks
// the registry afterwards.
func (l *Loader) fetchAndAwait(ctx context.Context, id string, log *logrus.Entry) {
	if l.fetcher == nil {
		log.Debug("module loader: no fetcher configured")
		return
	}

	// At most one dynamically injected module at a time.
	l.discardInjected()

	source, err := l.fetcher.Fetch(ctx, id)
	if err != nil {
		log.WithError(err).Warn("module loader: fetch failed")
		return
	}

	vm := NewVM(l.bus, l.registry.Register)
	l.vm = vm
	l.vmID = id

	if err := vm.Execute(string(source)); err != nil {
		log.WithError(err).Warn("module loader: module execution failed")
		return
	}

	if l.registry.Has(id) {
		return
	}

	// Registration may land after Execute returns. Wait for the announce
	// signal, bounded by the grace period.
	deadline := time.NewTimer(l.grace)
	defer deadline.Stop()
	for {
		select {
		case registered := <-vm.Registered():
			if registered == id {
				return
			}
			// A module may register extra ids first; keep waiting.
		case <-deadline.C:
			log.Warn("module loader: module never registered itself")
			return
		case <-ctx.Done():
			return
		}
	}
}

// instantiate is the terminal INSTANTIATE/FALLBACK step: tear down the
// previous occupant of the current-game slot, install the new instance, and
// run init when the capability is present.
func (l *Loader) instantiate(cfg levels.Config, factory game.Factory, placeholder bool) *game.Runner {
	runner := game.NewRunner(factory(cfg), cfg)

	if prev := l.state.SetCurrentGame(runner); prev != nil {
		prev.Destroy()
	}
	l.state.SetCurrentLevel(cfg.Number)

	if err := runner.Init(); err != nil {
		logrus.WithField("game", cfg.GameID()).WithError(err).Error("module loader: init failed")
	}

	l.bus.Publish(eventbus.KindLevelLoaded, eventbus.LevelLoaded{
		Level:       cfg.Number,
		Title:       cfg.Title,
		Year:        cfg.Year,
		Era:         string(cfg.Era),
		Placeholder: placeholder,
	})
	return runner
}

// discardInjected removes the currently injected module, if any.
func (l *Loader) discardInjected() {
	if l.vm != nil {
		l.vm.Close()
		l.vm = nil
		l.vmID = ""
	}
}

// InjectedModule reports which module currently occupies the injected
// resource slot. Diagnostics only.
func (l *Loader) InjectedModule() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vmID, l.vm != nil
}
