// Package bindings exposes the shell to the Wails frontend: one bound App
// object plus the bridges that push surface state and bus events into the
// webview.
package bindings

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/calebhart/chrono-arcade/internal/config"
	"github.com/calebhart/chrono-arcade/internal/eventbus"
	"github.com/calebhart/chrono-arcade/internal/gamestate"
	"github.com/calebhart/chrono-arcade/internal/levels"
	"github.com/calebhart/chrono-arcade/internal/minigames"
	"github.com/calebhart/chrono-arcade/internal/modules"
	"github.com/calebhart/chrono-arcade/internal/scores"
	"github.com/calebhart/chrono-arcade/internal/shell"
	"github.com/calebhart/chrono-arcade/internal/shellauth"
	"github.com/calebhart/chrono-arcade/internal/surfaces"
)

const appConfigDirName = "chrono-arcade"

// App is the single object bound into the webview.
type App struct {
	ctx context.Context
	cfg config.Config

	bus      *eventbus.Bus
	state    *gamestate.State
	registry *modules.Registry
	loader   *modules.Loader
	coord    *shell.Coordinator

	presenter *webviewPresenter
	confirmer *dialogConfirmer
	busSubs   []*eventbus.Subscription

	statusBar   *surfaces.StatusBar
	progression *surfaces.Progression
	overlay     *surfaces.InputOverlay

	scoreStore  *scores.Store
	scoreServer *scores.Server
	secrets     *shellauth.SecretStore
}

// New assembles the shell around the given configuration. Everything that can
// fail at startup is deferred to Startup so Wails surfaces the error.
func New(cfg config.Config) *App {
	bus := eventbus.New()
	state := gamestate.New(bus, nil)
	registry := modules.NewRegistry()
	minigames.RegisterBuiltins(registry, bus)

	loader := modules.NewLoader(registry, buildFetcher(cfg), bus, state,
		modules.WithGrace(cfg.RegistrationGrace))

	presenter := &webviewPresenter{}
	confirmer := &dialogConfirmer{}

	a := &App{
		cfg:       cfg,
		bus:       bus,
		state:     state,
		registry:  registry,
		loader:    loader,
		coord:     shell.New(bus, state, loader),
		presenter: presenter,
		confirmer: confirmer,
		secrets:   shellauth.NewSecretStore(appConfigDirName, filepath.Join(appDataDir(), "secrets.json")),
	}

	a.statusBar = surfaces.NewStatusBar(bus, state, presenter)
	a.progression = surfaces.NewProgression(bus, state, presenter, confirmer)
	a.progression.SetStartDelay(cfg.StartDelay)
	a.overlay = surfaces.NewInputOverlay(bus, state, presenter)
	return a
}

func buildFetcher(cfg config.Config) modules.Fetcher {
	if cfg.ModulesDir != "" {
		return modules.DirFetcher{Dir: cfg.ModulesDir}
	}
	if cfg.ModulesBaseURL != "" {
		return modules.HTTPFetcher{BaseURL: cfg.ModulesBaseURL}
	}
	return nil
}

// Startup runs when the Wails runtime is ready: the score service comes up
// and the webview bridges get their context.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.presenter.setContext(ctx)
	a.confirmer.setContext(ctx)
	a.busSubs = forwardBus(ctx, a.bus)

	dbPath := a.cfg.ScoresDBPath
	if !filepath.IsAbs(dbPath) {
		base := appDataDir()
		if err := os.MkdirAll(base, 0o755); err == nil {
			dbPath = filepath.Join(base, dbPath)
		}
	}

	store, err := scores.NewStore(dbPath)
	if err != nil {
		logrus.WithError(err).Error("bindings: score store init failed")
		return
	}
	a.scoreStore = store

	token := a.cfg.AdminToken
	if token == "" {
		token, err = a.secrets.AdminToken()
		if err != nil {
			logrus.WithError(err).Warn("bindings: admin token unavailable, updates disabled")
		}
	}

	a.scoreServer = scores.NewServer(store, a.cfg.ScoresPort, token)
	if err := a.scoreServer.Start(); err != nil {
		logrus.WithError(err).Error("bindings: score server failed to start")
	}
}

// Shutdown tears the shell down in reverse order of construction.
func (a *App) Shutdown(ctx context.Context) {
	for _, sub := range a.busSubs {
		a.bus.Unsubscribe(sub)
	}
	a.busSubs = nil

	if runner := a.state.SetCurrentGame(nil); runner != nil {
		runner.Destroy()
	}
	a.coord.Close()
	a.statusBar.Close()
	a.progression.Close()
	a.overlay.Close()

	if a.scoreServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.scoreServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("bindings: score server shutdown")
		}
	}
	if a.scoreStore != nil {
		_ = a.scoreStore.Close()
	}
}

// ---- methods callable from the frontend ----

// Levels returns the full level catalog for menu rendering.
func (a *App) Levels() []levels.Config {
	return levels.All()
}

// LoadLevel fetches and installs a level's game logic.
func (a *App) LoadLevel(level float64) error {
	return a.coord.LoadLevel(level)
}

// StartLevel starts the installed game.
func (a *App) StartLevel() error {
	return a.coord.StartLevel()
}

// PauseLevel suspends play.
func (a *App) PauseLevel() {
	a.coord.Pause()
}

// ResumeLevel continues paused play.
func (a *App) ResumeLevel() {
	a.coord.Resume()
}

// PressKey forwards a key press from the webview or on-screen overlay.
func (a *App) PressKey(code string) {
	a.overlay.Press(code)
}

// ClickNode handles a progression-strip node click.
func (a *App) ClickNode(level int) {
	a.progression.ClickNode(level)
}

// Phase reports the current play phase.
func (a *App) Phase() string {
	return string(a.state.Phase())
}

// TotalScore reports the session score.
func (a *App) TotalScore() int {
	return a.state.TotalScore()
}

// CompletedLevels reports which levels were finished this session.
func (a *App) CompletedLevels() []float64 {
	return a.state.Completed()
}

// ScoresURL tells the frontend where the local score API listens.
func (a *App) ScoresURL() string {
	if a.scoreServer == nil {
		return ""
	}
	return "http://" + a.scoreServer.Addr()
}

// SubmitScore records the session result on the local high-score table.
func (a *App) SubmitScore(name string) (scores.Entry, error) {
	if a.scoreStore == nil {
		return scores.Entry{}, os.ErrClosed
	}
	bonus := false
	for _, lvl := range a.state.Completed() {
		if levels.IsBonus(lvl) {
			bonus = true
			break
		}
	}
	return a.scoreStore.Add(context.Background(), name, a.state.TotalScore(), a.state.TotalCollectibles(), bonus)
}

// HighScores returns the ranked table.
func (a *App) HighScores(limit int) ([]scores.Entry, error) {
	if a.scoreStore == nil {
		return nil, os.ErrClosed
	}
	return a.scoreStore.List(context.Background(), limit)
}

// Quit closes the application.
func (a *App) Quit() {
	if a.ctx != nil {
		wruntime.Quit(a.ctx)
	}
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}
