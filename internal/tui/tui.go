// Package tui содержит текстовый интерфейс библиотеки медитаций
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ssbullock/serene/internal/tui/app"
)

// App представляет основное TUI приложение
type App struct {
	deps app.Deps
}

// NewApp создает новый экземпляр TUI приложения
func NewApp(deps app.Deps) *App {
	return &App{deps: deps}
}

// Run запускает TUI приложение и освобождает координатор по завершении
func (a *App) Run() error {
	model := app.NewMainModel(a.deps)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()

	if closeErr := model.Close(); err == nil {
		err = closeErr
	}
	return err
}
