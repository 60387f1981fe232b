package bindings

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/calebhart/chrono-arcade/internal/eventbus"
)

// webviewPresenter forwards each surface's derived state to the frontend as a
// "surface:<name>" event. Presentation before the wails context arrives is
// skipped, not queued; the surfaces re-render on the next bus event anyway.
type webviewPresenter struct {
	mu  sync.RWMutex
	ctx context.Context
}

func (p *webviewPresenter) setContext(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

func (p *webviewPresenter) Present(surface string, state any) {
	p.mu.RLock()
	ctx := p.ctx
	p.mu.RUnlock()
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, "surface:"+surface, state)
}

// dialogConfirmer asks through a native question dialog. Without a context it
// answers yes, matching the surfaces' missing-confirmer behavior.
type dialogConfirmer struct {
	mu  sync.RWMutex
	ctx context.Context
}

func (c *dialogConfirmer) setContext(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
}

func (c *dialogConfirmer) Confirm(message string) bool {
	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()
	if ctx == nil {
		return true
	}
	choice, err := runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
		Type:          runtime.QuestionDialog,
		Title:         "Chrono Arcade",
		Message:       message,
		Buttons:       []string{"Yes", "No"},
		DefaultButton: "Yes",
	})
	if err != nil {
		return false
	}
	return choice == "Yes"
}

// forwardedKinds are mirrored to the webview so the frontend can react to the
// same events the Go surfaces do.
var forwardedKinds = []eventbus.Kind{
	eventbus.KindLevelLoaded,
	eventbus.KindLevelCompleted,
	eventbus.KindPhaseChanged,
	eventbus.KindScoreChanged,
	eventbus.KindCollectibleGained,
	eventbus.KindToast,
}

// forwardBus emits every forwarded bus event as "bus:<kind>" and returns the
// subscriptions for teardown.
func forwardBus(ctx context.Context, bus *eventbus.Bus) []*eventbus.Subscription {
	subs := make([]*eventbus.Subscription, 0, len(forwardedKinds))
	for _, kind := range forwardedKinds {
		k := kind
		subs = append(subs, bus.Subscribe(k, func(payload any) {
			runtime.EventsEmit(ctx, "bus:"+string(k), payload)
		}))
	}
	return subs
}
