package main

import (
	"context"
	"embed"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/calebhart/chrono-arcade/bindings"
	"github.com/calebhart/chrono-arcade/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration invalid")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	app := bindings.New(cfg)

	var appCtx context.Context

	if err := wails.Run(&options.App{
		Title:            "Chrono Arcade",
		Width:            1024,
		Height:           768,
		MinWidth:         800,
		MinHeight:        600,
		WindowStartState: options.Normal,
		BackgroundColour: &options.RGBA{R: 16, G: 20, B: 28, A: 255},

		AssetServer: &assetserver.Options{
			Assets: assets,
		},

		OnStartup: func(ctx context.Context) {
			appCtx = ctx
			app.Startup(ctx)
		},
		OnShutdown: func(ctx context.Context) {
			app.Shutdown(ctx)
		},

		Menu: buildAppMenu(&appCtx),

		Bind: []interface{}{app},

		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "Chrono Arcade",
				Message: "A century of tiny machines, one level at a time.",
			},
		},
		Linux: &linux.Options{
			ProgramName:      "chrono-arcade",
			WebviewGpuPolicy: linux.WebviewGpuPolicyAlways,
		},
	}); err != nil {
		logrus.WithError(err).Fatal("wails run failed")
	}
}

func buildAppMenu(appCtx *context.Context) *menu.Menu {
	rootMenu := menu.NewMenu()

	if runtime.GOOS == "darwin" {
		if appMenu := menu.AppMenu(); appMenu != nil {
			rootMenu.Append(appMenu)
		}
	}

	gameMenu := menu.NewMenu()
	gameMenu.AddText("Toggle Fullscreen", keys.CmdOrCtrl("f"), func(_ *menu.CallbackData) {
		if ctx := *appCtx; ctx != nil {
			if wruntime.WindowIsFullscreen(ctx) {
				wruntime.WindowUnfullscreen(ctx)
			} else {
				wruntime.WindowFullscreen(ctx)
			}
		}
	})
	gameMenu.AddSeparator()
	gameMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		if ctx := *appCtx; ctx != nil {
			wruntime.Quit(ctx)
		}
	})
	rootMenu.Append(menu.SubMenu("Game", gameMenu))

	return rootMenu
}
