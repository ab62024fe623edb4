// Package listview содержит модель экрана библиотеки медитаций для TUI
package listview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/library"
	"github.com/ssbullock/serene/internal/utils"
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("114"))
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	quitTextStyle     = lipgloss.NewStyle().Margin(1, 0, 2, 4)
)

// MeditationSelectedMsg отправляется при выборе медитации для воспроизведения
type MeditationSelectedMsg struct {
	Meditation data.Meditation
}

// MeditationEditMsg отправляется при выборе медитации для редактирования
type MeditationEditMsg struct {
	Meditation data.Meditation
}

type meditationItem struct {
	meditation data.Meditation
}

func (i meditationItem) FilterValue() string {
	return fmt.Sprintf("%s %s %s", i.meditation.Title, i.meditation.Narrator, i.meditation.Intention)
}

type meditationDelegate struct{}

func (d meditationDelegate) Height() int                             { return 1 }
func (d meditationDelegate) Spacing() int                            { return 0 }
func (d meditationDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d meditationDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(meditationItem)
	if !ok {
		return
	}

	str := formatRow(i.meditation)

	fn := itemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(str))
}

// formatRow строка таблицы: ID | Название | Ведущий | Намерение | Фон | Длительность
func formatRow(m data.Meditation) string {
	background := m.Background
	if background == "" {
		background = "-"
	}
	return fmt.Sprintf("%-4d %-36s %-16s %-12s %-14s %s",
		m.ID,
		utils.TruncateString(m.Title, 36),
		utils.TruncateString(m.Narrator, 16),
		utils.TruncateString(m.Intention, 12),
		utils.TruncateString(background, 14),
		utils.FormatDurationFromSeconds(m.Length))
}

// Model представляет модель экрана библиотеки
type Model struct {
	list      list.Model
	library   *library.Manager
	intention string // Текущий фильтр по намерению, пустой - все записи
	quitting  bool
}

// NewModel создает новую модель списка медитаций
func NewModel(lib *library.Manager) *Model {
	l := list.New(nil, meditationDelegate{}, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	m := &Model{
		list:    l,
		library: lib,
	}
	m.RefreshData()
	return m
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return nil
}

// RefreshData перечитывает медитации с учетом фильтра
func (m *Model) RefreshData() {
	meditations := m.library.ByIntention(m.intention)

	items := make([]list.Item, len(meditations))
	for i, med := range meditations {
		items[i] = meditationItem{meditation: med}
	}
	m.list.SetItems(items)

	if m.intention == "" {
		m.list.Title = "Медитации"
	} else {
		m.list.Title = fmt.Sprintf("Медитации: %s", m.intention)
	}
}

// Intention возвращает текущий фильтр
func (m *Model) Intention() string {
	return m.intention
}

// nextIntention переключает фильтр: все -> намерение 1 -> ... -> все
func (m *Model) nextIntention() {
	intentions := m.library.Intentions()
	next := ""
	if m.intention == "" {
		if len(intentions) > 0 {
			next = intentions[0]
		}
	} else {
		for i, in := range intentions {
			if in == m.intention && i+1 < len(intentions) {
				next = intentions[i+1]
			}
		}
	}
	m.intention = next
	m.RefreshData()
}

func (m *Model) selected() (data.Meditation, bool) {
	item, ok := m.list.SelectedItem().(meditationItem)
	if !ok {
		return data.Meditation{}, false
	}
	return item.meditation, true
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		// Во время ввода фильтра клавиши принадлежат списку
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if med, ok := m.selected(); ok {
				return m, func() tea.Msg {
					return MeditationSelectedMsg{Meditation: med}
				}
			}

		case "e":
			if med, ok := m.selected(); ok {
				return m, func() tea.Msg {
					return MeditationEditMsg{Meditation: med}
				}
			}

		case "i":
			m.nextIntention()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View отображает модель
func (m *Model) View() string {
	if m.quitting {
		return quitTextStyle.Render("Хорошего дня!")
	}

	view := m.list.View()
	extraHelp := helpStyle.Render("Enter: слушать • e: редактировать • i: намерение • q: выход")
	return view + "\n" + extraHelp
}
