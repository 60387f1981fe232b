// Package surfaces implements the reactive UI surfaces of the shell: the
// status bar, the level-progression strip, and the on-screen input overlay.
// Every surface follows the same pattern: it caches its presentation target
// once at construction, subscribes to a fixed set of bus events, and on each
// event re-derives its complete render state from the payload and queries
// against shared state. A surface owns no authoritative data — only small
// animation side state such as a pulse flag or a toast timer — so it can be
// torn down and rebuilt at any time without losing anything.
package surfaces

// Presenter receives a surface's freshly derived render state. The shell
// implements it by forwarding to the webview; tests implement it with a
// recording fake. A nil Presenter is a valid "missing target": the surface
// keeps processing events and simply skips presentation.
type Presenter interface {
	Present(surface string, state any)
}

// Confirmer asks the user a yes/no question, e.g. before restarting a level
// from the progression strip. When no Confirmer is wired the shell treats
// the question as answered yes.
type Confirmer interface {
	Confirm(message string) bool
}

// Surface names passed to Presenter.Present.
const (
	SurfaceStatusBar    = "statusbar"
	SurfaceProgression  = "progression"
	SurfaceInputOverlay = "inputoverlay"
)
