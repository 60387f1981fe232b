package game

import (
	"testing"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

func TestPlaceholderEndsOnKeyPress(t *testing.T) {
	bus := eventbus.New()
	factory := PlaceholderFactory(bus)

	cfg, _ := levels.Lookup(5)
	inst := factory(cfg)

	var ended []eventbus.MinigameEnded
	bus.Subscribe(eventbus.KindMinigameEnded, func(p any) {
		ended = append(ended, p.(eventbus.MinigameEnded))
	})

	if err := inst.Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := inst.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "Space"})

	if len(ended) != 1 {
		t.Fatalf("expected 1 ended event, got %d", len(ended))
	}
	ev := ended[0]
	if !ev.Success {
		t.Error("placeholder completion should report success")
	}
	if ev.Score < 1000 || ev.Score >= 1500 {
		t.Errorf("score %d outside [1000,1500)", ev.Score)
	}
	if ev.Level != 5 {
		t.Errorf("expected level 5, got %v", ev.Level)
	}

	// Further key presses never emit a second terminal event.
	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "Space"})
	if len(ended) != 1 {
		t.Errorf("terminal event emitted twice")
	}
}

func TestPlaceholderIgnoresKeysWhilePaused(t *testing.T) {
	bus := eventbus.New()
	cfg, _ := levels.Lookup(2)
	inst := PlaceholderFactory(bus)(cfg).(*Placeholder)

	ended := 0
	bus.Subscribe(eventbus.KindMinigameEnded, func(any) { ended++ })

	if err := inst.Init(cfg); err != nil {
		t.Fatal(err)
	}
	if err := inst.Start(); err != nil {
		t.Fatal(err)
	}

	inst.Pause()
	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "Enter"})
	if ended != 0 {
		t.Fatal("paused placeholder should ignore input")
	}

	inst.Resume()
	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "Enter"})
	if ended != 1 {
		t.Errorf("expected completion after resume, got %d events", ended)
	}
}

func TestPlaceholderStopDetachesFromBus(t *testing.T) {
	bus := eventbus.New()
	cfg, _ := levels.Lookup(1)
	inst := PlaceholderFactory(bus)(cfg).(*Placeholder)

	if err := inst.Init(cfg); err != nil {
		t.Fatal(err)
	}
	if err := inst.Start(); err != nil {
		t.Fatal(err)
	}
	if bus.SubscriberCount(eventbus.KindInputKey) != 1 {
		t.Fatal("expected key subscription while running")
	}

	inst.Stop()
	inst.Stop()
	inst.Destroy()

	if bus.SubscriberCount(eventbus.KindInputKey) != 0 {
		t.Error("stop should unsubscribe from the bus")
	}

	if inst.Label() == "" {
		t.Error("placeholder should carry a visible label")
	}
}

func TestPlaceholderRunsUnderRunner(t *testing.T) {
	bus := eventbus.New()
	cfg, _ := levels.Lookup(7.5)
	inst := PlaceholderFactory(bus)(cfg)
	r := NewRunner(inst, cfg)

	if err := r.Init(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	ended := 0
	bus.Subscribe(eventbus.KindMinigameEnded, func(any) { ended++ })
	bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: "KeyA"})
	if ended != 1 {
		t.Fatalf("expected completion, got %d events", ended)
	}

	r.Stop()
	r.Destroy()
	if bus.SubscriberCount(eventbus.KindInputKey) != 0 {
		t.Error("destroy should detach the placeholder")
	}
}
