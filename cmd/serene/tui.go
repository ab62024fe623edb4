package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssbullock/serene/internal/audio"
	"github.com/ssbullock/serene/internal/logging"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/tui"
	tuiApp "github.com/ssbullock/serene/internal/tui/app"
)

// tuiLogFile лог TUI, чтобы сообщения не портили экран
var tuiLogFile = filepath.Join(os.TempDir(), "serene-tui.log")

// createTUICommand создает команду tui с привязкой к экземпляру приложения
func (app *Application) createTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI (Terminal User Interface)",
		Long:  `Launch interactive terminal user interface for browsing, editing and playing meditations.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.launchTUI()
		},
	}
}

func (app *Application) launchTUI() error {
	f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("ошибка открытия лога: %w", err)
	}
	defer f.Close()

	logger, err := logging.New(f, app.Config.LogLevel)
	if err != nil {
		return err
	}
	logger = logging.With(logger, "component", "tui")

	engine := audio.NewEngine(audio.WithLogger(logger))
	coordinator := player.New(engine,
		player.WithResolver(app.Catalog),
		player.WithVolume(app.Config.DefaultVolume()),
		player.WithLogger(logger),
	)

	program := tui.NewApp(app.deps(coordinator))
	if err := program.Run(); err != nil {
		return fmt.Errorf("ошибка TUI: %w", err)
	}
	return nil
}

// deps собирает зависимости TUI
func (app *Application) deps(coordinator *player.Coordinator) tuiApp.Deps {
	return tuiApp.Deps{
		Library:     app.Library,
		Catalog:     app.Catalog,
		Coordinator: coordinator,
		Locate:      app.locate,
	}
}
