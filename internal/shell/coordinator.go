// Package shell contains the coordinator that drives the play loop: it turns
// load/start requests from the surfaces into loader calls, moves the shared
// phase machine, and settles completions when a running game reports its end.
package shell

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/game"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// LevelLoader resolves a level's game logic into an installed runner. The
// module loader satisfies this; tests substitute a fake.
type LevelLoader interface {
	Load(ctx context.Context, cfg levels.Config) *game.Runner
}

// Coordinator owns the play loop. Exactly one exists per shell process.
// Subscribed events: level:load-requested, level:start-requested,
// minigame:ended.
type Coordinator struct {
	bus    *eventbus.Bus
	state  *gamestate.State
	loader LevelLoader
	subs   []*eventbus.Subscription
}

// New wires a coordinator to the bus.
func New(bus *eventbus.Bus, state *gamestate.State, loader LevelLoader) *Coordinator {
	c := &Coordinator{bus: bus, state: state, loader: loader}
	c.subs = []*eventbus.Subscription{
		bus.Subscribe(eventbus.KindLevelLoadRequested, c.onLoadRequested),
		bus.Subscribe(eventbus.KindLevelStartRequested, c.onStartRequested),
		bus.Subscribe(eventbus.KindMinigameEnded, c.onMinigameEnded),
	}
	return c
}

// Close detaches the coordinator from the bus. The current game, if any, is
// left installed.
func (c *Coordinator) Close() {
	for _, sub := range c.subs {
		c.bus.Unsubscribe(sub)
	}
	c.subs = nil
}

// LoadLevel loads a level's game logic and installs it as current. The direct
// entry point for shell bindings; bus requests funnel into the same path.
func (c *Coordinator) LoadLevel(level float64) error {
	cfg, ok := levels.Lookup(level)
	if !ok {
		return fmt.Errorf("unknown level %v", level)
	}
	if !c.state.Unlocked(level) {
		c.bus.Publish(eventbus.KindToast, eventbus.Toast{Message: "Level " + levels.FormatNumber(level) + " is still locked"})
		return fmt.Errorf("level %v is locked", level)
	}

	c.state.SetPhase(gamestate.PhaseLoading)
	c.loader.Load(context.Background(), cfg)
	return nil
}

// StartLevel starts the installed game and enters the playing phase.
func (c *Coordinator) StartLevel() error {
	runner := c.state.CurrentGame()
	if runner == nil {
		return fmt.Errorf("no level loaded")
	}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("shell: start failed")
		c.bus.Publish(eventbus.KindToast, eventbus.Toast{Message: "Could not start the level"})
		return err
	}
	c.state.SetPhase(gamestate.PhasePlaying)
	return nil
}

// Pause suspends the running game.
func (c *Coordinator) Pause() {
	if runner := c.state.CurrentGame(); runner != nil && runner.State() == game.StateRunning {
		runner.Pause()
		c.state.SetPhase(gamestate.PhasePaused)
	}
}

// Resume continues a paused game.
func (c *Coordinator) Resume() {
	if runner := c.state.CurrentGame(); runner != nil && runner.State() == game.StatePaused {
		runner.Resume()
		c.state.SetPhase(gamestate.PhasePlaying)
	}
}

func (c *Coordinator) onLoadRequested(payload any) {
	level, ok := requestedLevel(payload)
	if !ok {
		logrus.WithField("payload", payload).Warn("shell: malformed load request")
		return
	}
	if err := c.LoadLevel(level); err != nil {
		logrus.WithError(err).Warn("shell: load request rejected")
	}
}

// onStartRequested starts the installed game. A request that names a level is
// honored only while that level is still current; a click elsewhere during the
// start delay leaves a stale request behind, which is dropped here.
func (c *Coordinator) onStartRequested(payload any) {
	if level, ok := requestedLevel(payload); ok && level != 0 && level != c.state.CurrentLevel() {
		logrus.WithField("level", level).Debug("shell: stale start request dropped")
		return
	}
	if err := c.StartLevel(); err != nil {
		logrus.WithError(err).Warn("shell: start request rejected")
	}
}

// onMinigameEnded settles a finished run: the game is stopped, the phase
// moves to ended, and a successful run is credited to the session.
func (c *Coordinator) onMinigameEnded(payload any) {
	ended, ok := endedEvent(payload)
	if !ok {
		logrus.WithField("payload", payload).Warn("shell: malformed minigame end")
		return
	}
	if ended.Level == 0 {
		ended.Level = c.state.CurrentLevel()
	}

	if runner := c.state.CurrentGame(); runner != nil {
		runner.Stop()
	}
	c.state.SetPhase(gamestate.PhaseEnded)

	if !ended.Success {
		c.bus.Publish(eventbus.KindToast, eventbus.Toast{Message: "Time ran out — try again"})
		return
	}

	c.state.MarkCompleted(ended.Level)
	if ended.Score > 0 {
		c.state.AddScore(ended.Score)
	}
	if cfg, ok := levels.Lookup(ended.Level); ok {
		c.state.AddCollectible(cfg.Era, cfg.Sprite)
	}
	c.bus.Publish(eventbus.KindLevelCompleted, eventbus.LevelCompleted{
		Level: ended.Level,
		Score: ended.Score,
	})
}

// requestedLevel extracts the level number from a load/start request. Typed
// payloads come from Go callers; map payloads come from script modules via
// the VM bridge.
func requestedLevel(payload any) (float64, bool) {
	switch p := payload.(type) {
	case eventbus.LevelRequest:
		return p.Level, true
	case map[string]any:
		return numberField(p, "level")
	case float64:
		return p, true
	case int64:
		return float64(p), true
	}
	return 0, false
}

// endedEvent normalizes a minigame:ended payload from either side of the VM
// boundary.
func endedEvent(payload any) (eventbus.MinigameEnded, bool) {
	switch p := payload.(type) {
	case eventbus.MinigameEnded:
		return p, true
	case map[string]any:
		out := eventbus.MinigameEnded{}
		if level, ok := numberField(p, "level"); ok {
			out.Level = level
		}
		if success, ok := p["success"].(bool); ok {
			out.Success = success
		}
		if score, ok := numberField(p, "score"); ok {
			out.Score = int(score)
		}
		return out, true
	}
	return eventbus.MinigameEnded{}, false
}

// numberField reads a numeric map entry; goja exports numbers as int64 or
// float64 depending on their value.
func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
