package surfaces

import (
	"sync"
	"time"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
)

// toastDuration is how long a toast message stays visible.
const toastDuration = 2 * time.Second

// overlayLayout describes the on-screen controls for one era.
type overlayLayout struct {
	Name string
	Keys []string
}

// layouts maps each era tag to its on-screen control layout. Eras without an
// entry fall back to the generic layout.
var layouts = map[levels.Era]overlayLayout{
	levels.EraTelegraph:  {Name: "morse-key", Keys: []string{"Space"}},
	levels.EraGramophone: {Name: "crank", Keys: []string{"ArrowLeft", "ArrowRight"}},
	levels.EraWireless:   {Name: "tuning-dial", Keys: []string{"ArrowLeft", "ArrowRight", "Space"}},
	levels.EraAtomic:     {Name: "panel", Keys: []string{"ArrowUp", "ArrowDown", "Space"}},
	levels.EraTransistor: {Name: "dial", Keys: []string{"ArrowLeft", "ArrowRight"}},
	levels.EraArcade:     {Name: "joystick", Keys: []string{"ArrowLeft", "ArrowRight", "ArrowUp", "ArrowDown", "Space"}},
	levels.EraHomeMicro:  {Name: "keyboard", Keys: []string{"KeyA", "KeyZ", "Space"}},
	levels.EraConsole:    {Name: "gamepad", Keys: []string{"ArrowLeft", "ArrowRight", "KeyX", "KeyZ"}},
	levels.EraDialup:     {Name: "keypad", Keys: []string{"Digit1", "Digit2", "Digit3"}},
	levels.EraPocket:     {Name: "pocket-pad", Keys: []string{"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight"}},
}

var genericLayout = overlayLayout{Name: "generic", Keys: []string{"Space"}}

// OverlayState is the input overlay's full visible state.
type OverlayState struct {
	Visible bool     `json:"visible"`
	Era     string   `json:"era"`
	Layout  string   `json:"layout"`
	Keys    []string `json:"keys"`
	Toast   string   `json:"toast"`
}

// InputOverlay shows the era-specific on-screen controls and forwards user
// key presses onto the bus. Subscribed events: level:loaded, phase:changed,
// toast.
type InputOverlay struct {
	bus       *eventbus.Bus
	state     *gamestate.State
	presenter Presenter

	mu         sync.Mutex
	toast      string
	toastTimer *time.Timer
	subs       []*eventbus.Subscription
}

// NewInputOverlay wires the overlay to the bus. presenter may be nil.
func NewInputOverlay(bus *eventbus.Bus, state *gamestate.State, presenter Presenter) *InputOverlay {
	o := &InputOverlay{bus: bus, state: state, presenter: presenter}
	o.subs = []*eventbus.Subscription{
		bus.Subscribe(eventbus.KindLevelLoaded, func(any) { o.render() }),
		bus.Subscribe(eventbus.KindPhaseChanged, func(any) { o.render() }),
		bus.Subscribe(eventbus.KindToast, o.onToast),
	}
	o.render()
	return o
}

// Close detaches the overlay from the bus.
func (o *InputOverlay) Close() {
	o.mu.Lock()
	subs := o.subs
	o.subs = nil
	if o.toastTimer != nil {
		o.toastTimer.Stop()
		o.toastTimer = nil
	}
	o.mu.Unlock()

	for _, sub := range subs {
		o.bus.Unsubscribe(sub)
	}
}

// Press forwards a key press to the current game. Presses outside active
// play are dropped.
func (o *InputOverlay) Press(code string) {
	switch o.state.Phase() {
	case gamestate.PhasePlaying:
		o.bus.Publish(eventbus.KindInputKey, eventbus.KeyInput{Code: code})
	}
}

// onToast shows a message; a later toast supersedes the pending clear timer
// instead of stacking another one.
func (o *InputOverlay) onToast(payload any) {
	msg := ""
	switch t := payload.(type) {
	case eventbus.Toast:
		msg = t.Message
	case map[string]any:
		if m, ok := t["message"].(string); ok {
			msg = m
		}
	}

	o.mu.Lock()
	o.toast = msg
	if o.toastTimer != nil {
		o.toastTimer.Stop()
	}
	o.toastTimer = time.AfterFunc(toastDuration, func() {
		o.mu.Lock()
		o.toast = ""
		o.mu.Unlock()
		o.render()
	})
	o.mu.Unlock()
	o.render()
}

// render re-derives the overlay's full state.
func (o *InputOverlay) render() {
	st := o.deriveState()
	if o.presenter != nil {
		o.presenter.Present(SurfaceInputOverlay, st)
	}
}

func (o *InputOverlay) deriveState() OverlayState {
	o.mu.Lock()
	toast := o.toast
	o.mu.Unlock()

	phase := o.state.Phase()
	visible := phase == gamestate.PhasePlaying || phase == gamestate.PhasePaused

	layout := genericLayout
	era := levels.Era("")
	if cfg, ok := levels.Lookup(o.state.CurrentLevel()); ok {
		era = cfg.Era
		if l, found := layouts[cfg.Era]; found {
			layout = l
		}
	}

	return OverlayState{
		Visible: visible,
		Era:     string(era),
		Layout:  layout.Name,
		Keys:    append([]string(nil), layout.Keys...),
		Toast:   toast,
	}
}
