package modules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// fakeFetcher serves canned module sources and records every fetch.
type fakeFetcher struct {
	sources map[string]string
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	f.calls = append(f.calls, id)
	src, ok := f.sources[id]
	if !ok {
		return nil, fmt.Errorf("no such module %s", id)
	}
	return []byte(src), nil
}

func newTestLoader(t *testing.T, fetcher Fetcher) (*Loader, *Registry, *eventbus.Bus, *gamestate.State) {
	t.Helper()
	bus := eventbus.New()
	state := gamestate.New(bus, nil)
	registry := NewRegistry()
	loader := NewLoader(registry, fetcher, bus, state, WithGrace(50*time.Millisecond))
	return loader, registry, bus, state
}

func mustLevel(t *testing.T, n float64) levels.Config {
	t.Helper()
	cfg, ok := levels.Lookup(n)
	if !ok {
		t.Fatalf("level %v missing", n)
	}
	return cfg
}

func TestRegistryHitSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	loader, registry, _, state := newTestLoader(t, fetcher)

	cfg := mustLevel(t, 3)
	registry.Register(cfg.GameID(), factoryTagged("native"))

	runner := loader.Load(context.Background(), cfg)
	if runner == nil {
		t.Fatal("load returned nil")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("registry hit must not fetch, got %v", fetcher.calls)
	}
	if state.CurrentGame() != runner {
		t.Error("runner not installed as current game")
	}
	if state.CurrentLevel() != 3 {
		t.Errorf("current level = %v", state.CurrentLevel())
	}
}

func TestRegistryMissFetchesOnceAndInstantiates(t *testing.T) {
	cfg := mustLevel(t, 5)
	fetcher := &fakeFetcher{sources: map[string]string{
		cfg.GameID(): `registerGame("` + cfg.GameID() + `", {
			init: function(c) {},
			start: function() {}
		});`,
	}}
	loader, registry, _, _ := newTestLoader(t, fetcher)

	runner := loader.Load(context.Background(), cfg)
	if runner == nil {
		t.Fatal("load returned nil")
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected exactly one fetch, got %d", len(fetcher.calls))
	}
	if !registry.Has(cfg.GameID()) {
		t.Error("module should have registered itself")
	}
	if runner.State() != game.StateInitialized {
		t.Errorf("expected initialized runner, got %s", runner.State())
	}
	if err := runner.Start(); err != nil {
		t.Errorf("Start failed: %v", err)
	}
}

func TestFetchFailureFallsBackToPlaceholder(t *testing.T) {
	fetcher := &fakeFetcher{} // every fetch errors
	loader, _, bus, _ := newTestLoader(t, fetcher)

	var loaded []eventbus.LevelLoaded
	bus.Subscribe(eventbus.KindLevelLoaded, func(p any) {
		loaded = append(loaded, p.(eventbus.LevelLoaded))
	})

	cfg := mustLevel(t, 9)
	runner := loader.Load(context.Background(), cfg)
	if runner == nil {
		t.Fatal("load must resolve even when fetch fails")
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected one fetch attempt, got %d", len(fetcher.calls))
	}
	if len(loaded) != 1 || !loaded[0].Placeholder {
		t.Fatalf("expected a placeholder loaded event, got %+v", loaded)
	}

	// Scenario: a placeholder instance completes successfully from a single
	// simulated key press after start.
	var ended []eventbus.MinigameEnded
	bus.Subscribe(eventbus.KindMinigameEnded, func(p any) {
		ended = append(ended, p.(eventbus.MinigameEnded))
	})

	if err := runner.Start(); err != nil {
		t.Fatalf("placeholder start failed: %v", err)
	}
	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "Space"})

	if len(ended) != 1 {
		t.Fatalf("expected completion event, got %d", len(ended))
	}
	if !ended[0].Success {
		t.Error("placeholder should succeed")
	}
	if ended[0].Score < 1000 || ended[0].Score >= 1500 {
		t.Errorf("score %d outside [1000,1500)", ended[0].Score)
	}
}

func TestModuleThatNeverRegistersFallsBack(t *testing.T) {
	cfg := mustLevel(t, 6)
	fetcher := &fakeFetcher{sources: map[string]string{
		cfg.GameID(): `var x = 1; // runs fine, registers nothing`,
	}}
	loader, _, bus, _ := newTestLoader(t, fetcher)

	var loaded []eventbus.LevelLoaded
	bus.Subscribe(eventbus.KindLevelLoaded, func(p any) {
		loaded = append(loaded, p.(eventbus.LevelLoaded))
	})

	start := time.Now()
	runner := loader.Load(context.Background(), cfg)
	if runner == nil {
		t.Fatal("load must resolve")
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("loader should have waited out the grace period")
	}
	if len(loaded) != 1 || !loaded[0].Placeholder {
		t.Errorf("expected placeholder fallback, got %+v", loaded)
	}
}

func TestInjectedResourceSlotHoldsOneModule(t *testing.T) {
	cfgA := mustLevel(t, 5)
	cfgB := mustLevel(t, 6)
	fetcher := &fakeFetcher{sources: map[string]string{
		cfgA.GameID(): `registerGame("` + cfgA.GameID() + `", {init: function(){}, start: function(){}});`,
		cfgB.GameID(): `registerGame("` + cfgB.GameID() + `", {init: function(){}, start: function(){}});`,
	}}
	loader, _, _, _ := newTestLoader(t, fetcher)

	loader.Load(context.Background(), cfgA)
	id, present := loader.InjectedModule()
	if !present || id != cfgA.GameID() {
		t.Fatalf("expected %s injected, got %q (%v)", cfgA.GameID(), id, present)
	}

	loader.Load(context.Background(), cfgB)
	id, present = loader.InjectedModule()
	if !present || id != cfgB.GameID() {
		t.Fatalf("expected %s injected after second load, got %q", cfgB.GameID(), id)
	}
}

func TestNewLoadDestroysPreviousInstance(t *testing.T) {
	loader, registry, _, state := newTestLoader(t, nil)

	cfgA := mustLevel(t, 1)
	cfgB := mustLevel(t, 2)
	registry.Register(cfgA.GameID(), factoryTagged("a"))
	registry.Register(cfgB.GameID(), factoryTagged("b"))

	first := loader.Load(context.Background(), cfgA)
	second := loader.Load(context.Background(), cfgB)

	if first.State() != game.StateDestroyed {
		t.Errorf("previous runner should be destroyed, got %s", first.State())
	}
	if state.CurrentGame() != second {
		t.Error("latest load should own the current-game slot")
	}
}

func TestMinimalCapabilityFactoryScenario(t *testing.T) {
	// Register "A" with a factory whose instances expose only init/start.
	loader, registry, _, _ := newTestLoader(t, nil)
	cfg := mustLevel(t, 4)
	registry.Register(cfg.GameID(), func(levels.Config) game.Instance {
		return &minimalNative{}
	})

	runner := loader.Load(context.Background(), cfg)
	if runner.State() != game.StateInitialized {
		t.Fatalf("expected init to have run, got %s", runner.State())
	}
	if err := runner.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// No pause/resume required of the instance.
	runner.Pause()
	runner.Resume()
	runner.Stop()
	runner.Destroy()
}

type minimalNative struct {
	inits, starts int
}

func (m *minimalNative) Init(levels.Config) error { m.inits++; return nil }
func (m *minimalNative) Start() error             { m.starts++; return nil }
