// Package app содержит основную логику TUI приложения
package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/library"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/soundscape"
	"github.com/ssbullock/serene/internal/tui/editor"
	"github.com/ssbullock/serene/internal/tui/listview"
	tuiPlayer "github.com/ssbullock/serene/internal/tui/player"
)

// ScreenType определяет тип текущего экрана
type ScreenType int

const (
	// ListScreen экран библиотеки
	ListScreen ScreenType = iota
	// PlayerScreen экран плеера
	PlayerScreen
	// EditorScreen экран редактирования
	EditorScreen
)

// Locator возвращает локатор озвучки медитации
type Locator func(med data.Meditation) (string, error)

// Deps зависимости TUI
type Deps struct {
	Library     *library.Manager
	Catalog     *soundscape.Catalog
	Coordinator *player.Coordinator // Один координатор на всю сессию
	Locate      Locator
}

// MainModel представляет главную модель TUI
type MainModel struct {
	deps          Deps
	currentScreen ScreenType
	listModel     *listview.Model
	playerModel   *tuiPlayer.Model
	editorModel   *editor.Model
	notice        string
	size          *tea.WindowSizeMsg
}

// NewMainModel создает новую главную модель
func NewMainModel(deps Deps) *MainModel {
	if deps.Locate == nil {
		deps.Locate = func(med data.Meditation) (string, error) { return med.URL, nil }
	}
	return &MainModel{
		deps:          deps,
		currentScreen: ListScreen,
		listModel:     listview.NewModel(deps.Library),
	}
}

// Init инициализирует модель и подписывается на состояние координатора
func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(m.listModel.Init(), m.listenForState())
}

// listenForState ждет следующий снимок состояния. Закрытый канал завершает подписку.
func (m *MainModel) listenForState() tea.Cmd {
	updates := m.deps.Coordinator.Updates()
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return nil
		}
		return tuiPlayer.StateMsg{State: state}
	}
}

// CurrentScreen возвращает активный экран
func (m *MainModel) CurrentScreen() ScreenType {
	return m.currentScreen
}

// Update обрабатывает сообщения
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.deps.Coordinator.Pause()
			return m, tea.Quit
		}

	case tuiPlayer.StateMsg:
		// Подписка продолжается независимо от активного экрана
		listen := m.listenForState()
		if m.playerModel == nil {
			return m, listen
		}
		_, cmd := m.playerModel.Update(msg)
		return m, tea.Batch(cmd, listen)

	case listview.MeditationSelectedMsg:
		// Повторный выбор той же медитации продолжает ее с места остановки
		if m.playerModel != nil && m.playerModel.Meditation().ID == msg.Meditation.ID {
			m.notice = ""
			m.currentScreen = PlayerScreen
			return m, tea.Batch(m.playerModel.Init(), m.resize())
		}
		locator, err := m.deps.Locate(msg.Meditation)
		if err != nil {
			m.notice = fmt.Sprintf("Не удалось получить запись: %v", err)
			return m, nil
		}
		m.notice = ""
		m.currentScreen = PlayerScreen
		m.playerModel = tuiPlayer.NewModel(msg.Meditation, locator, m.deps.Coordinator, m.deps.Catalog)
		return m, tea.Batch(m.playerModel.Init(), m.resize())

	case listview.MeditationEditMsg:
		m.currentScreen = EditorScreen
		m.editorModel = editor.NewModel(m.deps.Library, m.deps.Catalog, msg.Meditation)
		return m, tea.Batch(m.editorModel.Init(), m.resize())

	case tuiPlayer.GoBackMsg:
		// Модель плеера остается, чтобы вернуться к той же медитации
		m.currentScreen = ListScreen
		return m, nil

	case editor.GoBackMsg:
		// Отложенный возврат после сохранения мог прийти, когда редактор уже закрыт
		if m.currentScreen != EditorScreen {
			return m, nil
		}
		m.currentScreen = ListScreen
		m.editorModel = nil
		m.listModel.RefreshData()
		return m, nil

	case editor.MeditationSavedMsg:
		// Изменения вступят в силу при следующем выборе
		if m.playerModel != nil && m.playerModel.Meditation().ID == msg.Meditation.ID {
			m.playerModel = nil
		}
		m.listModel.RefreshData()
		return m, nil

	case tea.WindowSizeMsg:
		size := msg
		m.size = &size
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.listModel, cmd = m.listModel.Update(msg)
		cmds = append(cmds, cmd)
		if m.playerModel != nil {
			_, cmd = m.playerModel.Update(msg)
			cmds = append(cmds, cmd)
		}
		if m.editorModel != nil {
			m.editorModel, cmd = m.editorModel.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch m.currentScreen {
	case ListScreen:
		m.listModel, cmd = m.listModel.Update(msg)

	case PlayerScreen:
		if m.playerModel != nil {
			_, cmd = m.playerModel.Update(msg)
		}

	case EditorScreen:
		if m.editorModel != nil {
			m.editorModel, cmd = m.editorModel.Update(msg)
		}
	}

	return m, cmd
}

// resize передает новому экрану последний известный размер окна
func (m *MainModel) resize() tea.Cmd {
	if m.size == nil {
		return nil
	}
	size := *m.size
	return func() tea.Msg { return size }
}

// View отображает интерфейс
func (m *MainModel) View() string {
	switch m.currentScreen {
	case ListScreen:
		view := m.listModel.View()
		if m.notice != "" {
			view += "\n" + m.notice
		}
		return view

	case PlayerScreen:
		if m.playerModel != nil {
			return m.playerModel.View()
		}
		return "Ошибка: модель плеера не инициализирована"

	case EditorScreen:
		if m.editorModel != nil {
			return m.editorModel.View()
		}
		return "Ошибка: модель редактора не инициализирована"

	default:
		return "Неизвестный экран"
	}
}

// Close освобождает координатор
func (m *MainModel) Close() error {
	return m.deps.Coordinator.Close()
}
