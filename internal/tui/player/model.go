// Package player содержит модель экрана воспроизведения медитации для TUI
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/soundscape"
	"github.com/ssbullock/serene/internal/streaming"
	"github.com/ssbullock/serene/internal/utils"
)

const (
	// SeekStep шаг перемотки
	SeekStep = 15 * time.Second
	// VolumeStep шаг изменения громкости
	VolumeStep = 0.1
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fafaf")).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)
)

// GoBackMsg отправляется для возврата к списку медитаций
type GoBackMsg struct{}

// StateMsg содержит снимок состояния координатора
type StateMsg struct {
	State player.State
}

// PlaybackErrorMsg отправляется при ошибке запуска воспроизведения
type PlaybackErrorMsg struct {
	Error error
}

// Model представляет модель экрана воспроизведения
type Model struct {
	meditation  data.Meditation
	coordinator *player.Coordinator
	catalog     *soundscape.Catalog
	background  string
	state       player.State
	volume      float64
	progressBar progress.Model
	err         error
	width       int
	height      int
}

// NewModel привязывает координатор к медитации. Локатор озвучки передается
// уже разрешенным (например, подписанная ссылка).
func NewModel(med data.Meditation, locator string, coordinator *player.Coordinator, catalog *soundscape.Catalog) *Model {
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	coordinator.Configure(player.NewConfig(locator, med.Background))

	return &Model{
		meditation:  med,
		coordinator: coordinator,
		catalog:     catalog,
		background:  med.Background,
		state:       coordinator.State(),
		volume:      coordinator.Volume(),
		progressBar: prog,
	}
}

// Init запускает воспроизведение
func (m *Model) Init() tea.Cmd {
	return m.play()
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = min(60, msg.Width-10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.state = msg.State
		var percent float64
		if msg.State.Duration > 0 {
			percent = float64(msg.State.CurrentTime) / float64(msg.State.Duration)
		}
		return m, m.progressBar.SetPercent(percent)

	case PlaybackErrorMsg:
		m.err = msg.Error
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.coordinator.Pause()
		return m, func() tea.Msg {
			return GoBackMsg{}
		}

	case " ":
		if m.state.IsPlaying {
			m.coordinator.Pause()
			return m, nil
		}
		m.err = nil
		return m, m.play()

	case "left", "h":
		m.seek(-SeekStep)
	case "right", "l":
		m.seek(SeekStep)

	case "+", "=":
		m.setVolume(m.volume + VolumeStep)
	case "-":
		m.setVolume(m.volume - VolumeStep)

	case "b":
		// Смена фона не возобновляет воспроизведение
		if m.catalog != nil {
			m.background = m.catalog.Next(m.background)
			cfg := m.coordinator.Config()
			narration, _ := cfg.Narration.Get()
			m.coordinator.Configure(player.NewConfig(narration, m.background))
		}
	}
	return m, nil
}

func (m *Model) seek(delta time.Duration) {
	pos := utils.ClampDuration(m.state.CurrentTime+delta, m.state.Duration)
	m.coordinator.Seek(pos)
	m.state.CurrentTime = pos
}

func (m *Model) setVolume(v float64) {
	m.volume = utils.ClampVolume(v)
	m.coordinator.SetVolume(m.volume)
}

// View отображает модель
func (m *Model) View() string {
	title := titleStyle.Render("🧘 " + m.meditation.Title)

	narrator := m.meditation.Narrator
	if narrator == "" {
		narrator = "-"
	}
	info := infoStyle.Render(fmt.Sprintf(
		"🎙  %s\n🎯 %s\n🌿 %s",
		narrator,
		orDash(m.meditation.Intention),
		m.backgroundTitle(),
	))

	statusIcon := "⏸️"
	if m.state.IsPlaying {
		statusIcon = "▶️"
	}
	statusText := statusStyle.Render(fmt.Sprintf("%s %s", statusIcon, formatStatus(m.state)))

	timeText := fmt.Sprintf(
		"%s / %s   🔊 %d%%",
		utils.FormatDuration(m.state.CurrentTime),
		utils.FormatDuration(m.state.Duration),
		int(m.volume*100+0.5),
	)

	controls := controlsStyle.Render(
		"Пробел: пауза • ←/→: 15 с • +/-: громкость • b: фон • q/esc: назад",
	)

	view := fmt.Sprintf(
		"%s\n\n%s\n\n%s\n\n%s\n%s\n\n%s",
		title,
		info,
		statusText,
		m.progressBar.View(),
		timeText,
		controls,
	)
	if m.err != nil {
		view += "\n\n" + errorStyle.Render("❌ "+m.err.Error())
	}
	return view
}

// Background возвращает выбранный звуковой ландшафт
func (m *Model) Background() string {
	return m.background
}

// Meditation возвращает проигрываемую медитацию
func (m *Model) Meditation() data.Meditation {
	return m.meditation
}

func (m *Model) backgroundTitle() string {
	if m.background == "" || m.background == player.NoBackground {
		return "без фона"
	}
	if m.catalog != nil {
		if e, ok := m.catalog.Lookup(m.background); ok && e.Title != "" {
			return e.Title
		}
	}
	return m.background
}

// play запускает координатор. Прерванный запуск не считается ошибкой.
func (m *Model) play() tea.Cmd {
	coordinator := m.coordinator
	return func() tea.Msg {
		err := coordinator.Play(context.Background())
		if err != nil && !errors.Is(err, player.ErrPlayInterrupted) {
			return PlaybackErrorMsg{Error: err}
		}
		return nil
	}
}

func formatStatus(s player.State) string {
	switch {
	case s.IsPlaying:
		return "Воспроизведение"
	case s.IsLoading:
		return streaming.GetStreamStatus(true, 0)
	case s.Duration > 0 && s.CurrentTime >= s.Duration:
		return "Завершено"
	default:
		return "Пауза"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
