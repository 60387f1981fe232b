package surfaces

import (
	"sync"
	"testing"
	"time"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// recordingPresenter keeps every presented state, newest last.
type recordingPresenter struct {
	mu     sync.Mutex
	states []any
}

func (p *recordingPresenter) Present(_ string, state any) {
	p.mu.Lock()
	p.states = append(p.states, state)
	p.mu.Unlock()
}

func (p *recordingPresenter) last(t *testing.T) any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		t.Fatal("nothing was presented")
	}
	return p.states[len(p.states)-1]
}

// scriptedConfirmer answers every question with a fixed reply.
type scriptedConfirmer struct {
	answer bool
	asked  []string
}

func (c *scriptedConfirmer) Confirm(message string) bool {
	c.asked = append(c.asked, message)
	return c.answer
}

func newFixture(t *testing.T) (*eventbus.Bus, *gamestate.State) {
	t.Helper()
	bus := eventbus.New()
	return bus, gamestate.New(bus, nil)
}

func countRequests(bus *eventbus.Bus) (loads, starts *int) {
	loads, starts = new(int), new(int)
	bus.Subscribe(eventbus.KindLevelLoadRequested, func(any) { *loads++ })
	bus.Subscribe(eventbus.KindLevelStartRequested, func(any) { *starts++ })
	return loads, starts
}

func TestStatusBarTracksLevelAndPhase(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	sb := NewStatusBar(bus, state, presenter)
	defer sb.Close()

	state.SetCurrentLevel(3)
	state.SetPhase(gamestate.PhasePlaying)

	st := presenter.last(t).(StatusBarState)
	if st.LevelLabel != "03" {
		t.Errorf("level label = %q, want 03", st.LevelLabel)
	}
	if st.Phase != "playing" {
		t.Errorf("phase = %q", st.Phase)
	}
	if st.Year != 1923 {
		t.Errorf("year = %d", st.Year)
	}
}

func TestStatusBarScorePulseSupersedes(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	sb := NewStatusBar(bus, state, presenter)
	defer sb.Close()

	state.AddScore(100)
	st := presenter.last(t).(StatusBarState)
	if !st.ScorePulse {
		t.Error("pulse should be lit right after a score change")
	}
	if st.ScoreLabel != "0100" {
		t.Errorf("score label = %q, want 0100", st.ScoreLabel)
	}

	// A second score while the first pulse is pending must not clear early.
	state.AddScore(50)
	st = presenter.last(t).(StatusBarState)
	if !st.ScorePulse {
		t.Error("pulse should still be lit after the superseding score")
	}
	if st.ScoreLabel != "0150" {
		t.Errorf("score label = %q, want 0150", st.ScoreLabel)
	}
}

func TestStatusBarCollectibles(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	sb := NewStatusBar(bus, state, presenter)
	defer sb.Close()

	state.AddCollectible(levels.EraArcade, "coin")
	state.AddCollectible(levels.EraArcade, "coin")

	st := presenter.last(t).(StatusBarState)
	if st.Collectibles[string(levels.EraArcade)] != 2 {
		t.Errorf("collectibles = %v", st.Collectibles)
	}
}

func TestNilPresenterIsNoop(t *testing.T) {
	bus, state := newFixture(t)
	sb := NewStatusBar(bus, state, nil)
	defer sb.Close()

	// Must not panic with a missing presentation target.
	state.SetPhase(gamestate.PhasePlaying)
	state.AddScore(10)
}

func TestClickLockedNodeIsNoop(t *testing.T) {
	bus, state := newFixture(t)
	loads, starts := countRequests(bus)
	p := NewProgression(bus, state, nil, &scriptedConfirmer{answer: true})
	defer p.Close()
	p.SetStartDelay(time.Millisecond)

	// Nothing completed, so every level past 1 is locked.
	p.ClickNode(5)

	time.Sleep(20 * time.Millisecond)
	if *loads != 0 || *starts != 0 {
		t.Errorf("locked click must issue no requests, got %d loads %d starts", *loads, *starts)
	}
}

func TestClickCurrentlyPlayingNodeIsNoop(t *testing.T) {
	bus, state := newFixture(t)
	loads, starts := countRequests(bus)
	p := NewProgression(bus, state, nil, &scriptedConfirmer{answer: true})
	defer p.Close()
	p.SetStartDelay(time.Millisecond)

	state.SetCurrentLevel(1)
	state.SetPhase(gamestate.PhasePlaying)
	p.ClickNode(1)

	time.Sleep(20 * time.Millisecond)
	if *loads != 0 || *starts != 0 {
		t.Errorf("click on the playing node must issue no requests, got %d loads %d starts", *loads, *starts)
	}
}

func TestClickPlayingBonusMapsToIntegerNode(t *testing.T) {
	bus, state := newFixture(t)
	loads, _ := countRequests(bus)
	p := NewProgression(bus, state, nil, &scriptedConfirmer{answer: true})
	defer p.Close()
	p.SetStartDelay(time.Millisecond)

	// Bonus 4.5 in play lights node 4, so clicking node 4 is a no-op.
	for _, n := range []float64{1, 2, 3, 4} {
		state.MarkCompleted(n)
	}
	state.SetCurrentLevel(4.5)
	state.SetPhase(gamestate.PhasePlaying)
	p.ClickNode(4)

	time.Sleep(20 * time.Millisecond)
	if *loads != 0 {
		t.Errorf("click on the node of the playing bonus must be a no-op, got %d loads", *loads)
	}
}

func TestClickUnlockedNodeLoadsThenStarts(t *testing.T) {
	bus, state := newFixture(t)
	confirmer := &scriptedConfirmer{answer: true}
	p := NewProgression(bus, state, nil, confirmer)
	defer p.Close()
	p.SetStartDelay(5 * time.Millisecond)

	var order []eventbus.Kind
	var mu sync.Mutex
	record := func(kind eventbus.Kind) func(any) {
		return func(payload any) {
			req := payload.(eventbus.LevelRequest)
			if req.Level != 1 {
				t.Errorf("request for level %v, want 1", req.Level)
			}
			mu.Lock()
			order = append(order, kind)
			mu.Unlock()
		}
	}
	bus.Subscribe(eventbus.KindLevelLoadRequested, record(eventbus.KindLevelLoadRequested))
	bus.Subscribe(eventbus.KindLevelStartRequested, record(eventbus.KindLevelStartRequested))

	p.ClickNode(1)

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != eventbus.KindLevelLoadRequested || order[1] != eventbus.KindLevelStartRequested {
		t.Fatalf("expected load then start, got %v", order)
	}
	if len(confirmer.asked) != 1 {
		t.Errorf("expected one confirmation, got %v", confirmer.asked)
	}
}

func TestClickDeclinedConfirmationIsNoop(t *testing.T) {
	bus, state := newFixture(t)
	loads, starts := countRequests(bus)
	p := NewProgression(bus, state, nil, &scriptedConfirmer{answer: false})
	defer p.Close()
	p.SetStartDelay(time.Millisecond)

	p.ClickNode(1)

	time.Sleep(20 * time.Millisecond)
	if *loads != 0 || *starts != 0 {
		t.Errorf("declined confirmation must issue no requests, got %d loads %d starts", *loads, *starts)
	}
}

func TestSurfaceCloseConcurrentWithUse(t *testing.T) {
	bus, state := newFixture(t)
	p := NewProgression(bus, state, nil, nil)
	sb := NewStatusBar(bus, state, nil)
	o := NewInputOverlay(bus, state, nil)

	// Close races callers that take the same mutex; run with -race.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p.SetStartDelay(time.Millisecond)
		}
	}()
	p.Close()
	sb.Close()
	o.Close()
	wg.Wait()

	// Close is idempotent.
	p.Close()
	sb.Close()
	o.Close()
}

func TestProgressionDerivesNodesAndFill(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	p := NewProgression(bus, state, presenter, nil)
	defer p.Close()

	state.MarkCompleted(1)
	state.MarkCompleted(2)
	state.SetCurrentLevel(3)
	state.SetPhase(gamestate.PhasePlaying)

	st := presenter.last(t).(ProgressionState)
	if len(st.Nodes) != levels.MainCount {
		t.Fatalf("expected %d nodes, got %d", levels.MainCount, len(st.Nodes))
	}
	if !st.Nodes[0].Completed || !st.Nodes[1].Completed {
		t.Error("levels 1 and 2 should show completed")
	}
	if !st.Nodes[2].Current {
		t.Error("level 3 should be current")
	}
	if st.Nodes[2].Locked {
		t.Error("level 3 should be unlocked")
	}
	if !st.Nodes[4].Locked {
		t.Error("level 5 should be locked")
	}
	want := levels.FillPercent(2)
	if st.FillPercent != want {
		t.Errorf("fill = %v, want %v", st.FillPercent, want)
	}
}

func TestOverlayPressOnlyWhilePlaying(t *testing.T) {
	bus, state := newFixture(t)
	o := NewInputOverlay(bus, state, nil)
	defer o.Close()

	var keys []eventbus.KeyInput
	bus.Subscribe(eventbus.KindInputKey, func(p any) {
		keys = append(keys, p.(eventbus.KeyInput))
	})

	o.Press("Space") // idle
	state.SetPhase(gamestate.PhasePaused)
	o.Press("Space") // paused
	state.SetPhase(gamestate.PhasePlaying)
	o.Press("Space")

	if len(keys) != 1 {
		t.Fatalf("expected exactly one forwarded press, got %d", len(keys))
	}
	if keys[0].Code != "Space" {
		t.Errorf("code = %q", keys[0].Code)
	}
}

func TestOverlayLayoutFollowsEra(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	o := NewInputOverlay(bus, state, presenter)
	defer o.Close()

	state.SetCurrentLevel(1) // telegraph era
	state.SetPhase(gamestate.PhasePlaying)

	st := presenter.last(t).(OverlayState)
	if !st.Visible {
		t.Error("overlay should be visible while playing")
	}
	if st.Layout != "morse-key" {
		t.Errorf("layout = %q, want morse-key", st.Layout)
	}

	state.SetPhase(gamestate.PhaseEnded)
	st = presenter.last(t).(OverlayState)
	if st.Visible {
		t.Error("overlay should hide once play ends")
	}
}

func TestOverlayToastSupersedes(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	o := NewInputOverlay(bus, state, presenter)
	defer o.Close()

	bus.Publish(eventbus.KindToast, eventbus.Toast{Message: "first"})
	bus.Publish(eventbus.KindToast, eventbus.Toast{Message: "second"})

	st := presenter.last(t).(OverlayState)
	if st.Toast != "second" {
		t.Errorf("toast = %q, want second", st.Toast)
	}
}

func TestOverlayToastFromScriptPayload(t *testing.T) {
	bus, state := newFixture(t)
	presenter := &recordingPresenter{}
	o := NewInputOverlay(bus, state, presenter)
	defer o.Close()

	// Script-emitted payloads arrive as plain maps.
	bus.Publish(eventbus.KindToast, map[string]any{"message": "from script"})

	st := presenter.last(t).(OverlayState)
	if st.Toast != "from script" {
		t.Errorf("toast = %q", st.Toast)
	}
}
