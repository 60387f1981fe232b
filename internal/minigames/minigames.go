// Package minigames ships the native built-in games of the anthology. They
// register through the same factory registry script modules use, so the
// loader treats a built-in level and a fetched one identically.
package minigames

import (
	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/levels"
	"github.com/calebhart/chrono-arcade/internal/modules"
)

// RegisterBuiltins installs every native game factory. Called once at shell
// startup, before the first load; fetched modules registering the same id
// later simply win.
func RegisterBuiltins(registry *modules.Registry, bus *eventbus.Bus) {
	register := func(level float64, factory game.Factory) {
		if cfg, ok := levels.Lookup(level); ok {
			registry.Register(cfg.GameID(), factory)
		}
	}
	register(1, MorseFactory(bus))
	register(7, ReflexFactory(bus))
}
