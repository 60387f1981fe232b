package modules

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/levels"
)

// scriptGame adapts a module-registered JS definition to the game lifecycle
// contract. Only init and start are required of the definition; the optional
// lifecycle entries are invoked when present and skipped otherwise. All
// calls into the runtime are serialized through the owning VM's mutex.
type scriptGame struct {
	vm     *VM
	id     string
	create goja.Callable // set for function definitions
	table  *goja.Object  // lifecycle table
}

func configValue(r *goja.Runtime, cfg levels.Config) goja.Value {
	return r.ToValue(map[string]any{
		"number": cfg.Number,
		"year":   cfg.Year,
		"title":  cfg.Title,
		"era":    string(cfg.Era),
		"sprite": cfg.Sprite,
	})
}

// Init resolves the lifecycle table (calling the factory function for
// function-style definitions) and invokes the module's init.
func (g *scriptGame) Init(cfg levels.Config) error {
	return g.vm.runWithTimeout(moduleCallTimeout, func() error {
		g.vm.mu.Lock()
		defer g.vm.mu.Unlock()

		if g.create != nil {
			result, err := g.create(goja.Undefined(), configValue(g.vm.runtime, cfg))
			if err != nil {
				return fmt.Errorf("modules: %s factory: %w", g.id, err)
			}
			g.table = result.ToObject(g.vm.runtime)
		}
		if g.table == nil {
			return fmt.Errorf("modules: %s produced no instance", g.id)
		}
		return g.callLocked("init", configValue(g.vm.runtime, cfg))
	})
}

// Start invokes the module's start.
func (g *scriptGame) Start() error {
	return g.vm.runWithTimeout(moduleCallTimeout, func() error {
		g.vm.mu.Lock()
		defer g.vm.mu.Unlock()
		return g.callLocked("start")
	})
}

// Pause invokes the module's pause when defined.
func (g *scriptGame) Pause() { g.callOptional("pause") }

// Resume invokes the module's resume when defined.
func (g *scriptGame) Resume() { g.callOptional("resume") }

// Stop invokes the module's stop when defined.
func (g *scriptGame) Stop() { g.callOptional("stop") }

// Destroy invokes the module's destroy when defined.
func (g *scriptGame) Destroy() { g.callOptional("destroy") }

// Tick forwards a render tick to the module's tick entry when defined.
func (g *scriptGame) Tick(dt time.Duration) {
	g.vm.mu.Lock()
	defer g.vm.mu.Unlock()
	fn, ok := g.fnLocked("tick")
	if !ok {
		return
	}
	if _, err := fn(g.table, g.vm.runtime.ToValue(dt.Seconds())); err != nil {
		logrus.WithField("game", g.id).WithError(err).Warn("module tick failed")
	}
}

// callLocked invokes a lifecycle entry; missing entries are an error only
// for the mandatory capabilities the callers pass in. Caller holds vm.mu.
func (g *scriptGame) callLocked(name string, args ...goja.Value) error {
	fn, ok := g.fnLocked(name)
	if !ok {
		// init/start are part of the mandatory capability set; a module
		// that omits them simply has nothing to do at that point.
		return nil
	}
	if _, err := fn(g.table, args...); err != nil {
		return fmt.Errorf("modules: %s %s(): %w", g.id, name, err)
	}
	return nil
}

func (g *scriptGame) callOptional(name string) {
	g.vm.mu.Lock()
	defer g.vm.mu.Unlock()
	if err := g.callLocked(name); err != nil {
		logrus.WithField("game", g.id).WithError(err).Warn("module lifecycle call failed")
	}
}

func (g *scriptGame) fnLocked(name string) (goja.Callable, bool) {
	if g.table == nil {
		return nil, false
	}
	v := g.table.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	fn, ok := goja.AssertFunction(v)
	return fn, ok
}
