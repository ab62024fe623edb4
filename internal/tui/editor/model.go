// Package editor содержит модель экрана редактирования медитации для TUI
package editor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/library"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/soundscape"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("79")).Bold(true).Margin(1, 0)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(15)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("79"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Margin(1, 0)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Margin(1, 0)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
)

// MeditationSavedMsg отправляется когда медитация успешно сохранена
type MeditationSavedMsg struct {
	Meditation data.Meditation
}

// GoBackMsg отправляется при выходе из редактора
type GoBackMsg struct{}

type fieldType int

const (
	titleField fieldType = iota
	narratorField
	intentionField
	backgroundField
	numFields
)

// Model представляет модель экрана редактирования медитации
type Model struct {
	library    *library.Manager
	catalog    *soundscape.Catalog
	original   data.Meditation
	inputs     []textinput.Model
	focusIndex int
	err        string
	success    string
}

// NewModel создает новую модель редактора
func NewModel(lib *library.Manager, catalog *soundscape.Catalog, med data.Meditation) *Model {
	inputs := make([]textinput.Model, numFields)

	inputs[titleField] = textinput.New()
	inputs[titleField].Placeholder = "Название медитации"
	inputs[titleField].SetValue(med.Title)
	inputs[titleField].Focus()
	inputs[titleField].PromptStyle = focusedStyle
	inputs[titleField].TextStyle = focusedStyle

	inputs[narratorField] = textinput.New()
	inputs[narratorField].Placeholder = "Ведущий"
	inputs[narratorField].SetValue(med.Narrator)

	inputs[intentionField] = textinput.New()
	inputs[intentionField].Placeholder = "Намерение: сон, фокус, спокойствие"
	inputs[intentionField].SetValue(med.Intention)

	inputs[backgroundField] = textinput.New()
	inputs[backgroundField].Placeholder = "Фон: " + strings.Join(ids(catalog), ", ")
	inputs[backgroundField].SetValue(med.Background)

	return &Model{
		library:  lib,
		catalog:  catalog,
		original: med,
		inputs:   inputs,
	}
}

func ids(catalog *soundscape.Catalog) []string {
	if catalog == nil {
		return nil
	}
	return catalog.IDs()
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, func() tea.Msg {
				return GoBackMsg{}
			}

		case "ctrl+s":
			return m, m.save()

		case "tab", "shift+tab", "enter", "up", "down":
			s := msg.String()

			if s == "enter" && m.focusIndex == len(m.inputs) {
				return m, m.save()
			}

			if s == "up" || s == "shift+tab" {
				m.focusIndex--
			} else {
				m.focusIndex++
			}

			if m.focusIndex > len(m.inputs) {
				m.focusIndex = 0
			} else if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs)
			}

			cmds := make([]tea.Cmd, len(m.inputs))
			for i := range m.inputs {
				if i == m.focusIndex {
					cmds[i] = m.inputs[i].Focus()
					m.inputs[i].PromptStyle = focusedStyle
					m.inputs[i].TextStyle = focusedStyle
				} else {
					m.inputs[i].Blur()
					m.inputs[i].PromptStyle = blurredStyle
					m.inputs[i].TextStyle = blurredStyle
				}
			}

			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		for i := range m.inputs {
			m.inputs[i].Width = msg.Width - 20
		}
		return m, nil
	}

	if m.focusIndex < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}

	return m, nil
}

// normalizeBackground приводит значение поля фона к идентификатору каталога.
// Пустое значение и "none" означают отсутствие фона.
func (m *Model) normalizeBackground(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == player.NoBackground {
		return "", nil
	}
	if m.catalog != nil {
		if _, ok := m.catalog.Lookup(value); !ok {
			return "", fmt.Errorf("неизвестный фон %q, доступны: %s", value, strings.Join(m.catalog.IDs(), ", "))
		}
	}
	return value, nil
}

// save проверяет поля и сохраняет медитацию
func (m *Model) save() tea.Cmd {
	title := strings.TrimSpace(m.inputs[titleField].Value())
	if title == "" {
		m.err = "Поле 'Название' не может быть пустым"
		m.success = ""
		return nil
	}

	background, err := m.normalizeBackground(m.inputs[backgroundField].Value())
	if err != nil {
		m.err = err.Error()
		m.success = ""
		return nil
	}

	updated := m.original
	updated.Title = title
	updated.Narrator = strings.TrimSpace(m.inputs[narratorField].Value())
	updated.Intention = strings.TrimSpace(m.inputs[intentionField].Value())
	updated.Background = background

	if err := m.library.Update(updated); err != nil {
		m.err = fmt.Sprintf("Ошибка сохранения медитации: %v", err)
		m.success = ""
		return nil
	}

	m.original = updated
	m.err = ""
	m.success = "Медитация сохранена!"

	return tea.Batch(
		func() tea.Msg { return MeditationSavedMsg{Meditation: updated} },
		tea.Tick(time.Second, func(time.Time) tea.Msg { return GoBackMsg{} }),
	)
}

// View отображает модель
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Редактирование медитации #%d", m.original.ID)))
	b.WriteString("\n\n")

	labels := []string{"Название:", "Ведущий:", "Намерение:", "Фон:"}
	for i, input := range m.inputs {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(" ")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	saveButton := "[ Сохранить ]"
	if m.focusIndex == len(m.inputs) {
		saveButton = focusedStyle.Render(saveButton)
	} else {
		saveButton = blurredStyle.Render(saveButton)
	}
	b.WriteString(saveButton)
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	if m.success != "" {
		b.WriteString(successStyle.Render(m.success))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Tab/Enter: следующее поле • Shift+Tab: предыдущее поле"))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("Ctrl+S: сохранить • Esc: отмена"))

	return b.String()
}
