package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssbullock/serene/internal/audio"
	"github.com/ssbullock/serene/internal/data"
	"github.com/ssbullock/serene/internal/logging"
	"github.com/ssbullock/serene/internal/player"
	"github.com/ssbullock/serene/internal/streaming"
	tuiPlayer "github.com/ssbullock/serene/internal/tui/player"
	"github.com/ssbullock/serene/internal/utils"
)

// playTarget что и с каким фоном воспроизводить
type playTarget struct {
	Meditation data.Meditation
	Locator    string
	Background string
}

// createPlayCommand создает команду play с привязкой к экземпляру приложения
func (app *Application) createPlayCommand(ctx context.Context) *cobra.Command {
	var (
		background string
		volume     float64
	)

	cmd := &cobra.Command{
		Use:   "play [id | file | url]",
		Short: "Play a meditation with a background soundscape",
		Long: `Play a meditation by its library ID, or any local file or URL, while a
background soundscape loops underneath the narration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := app.resolvePlayTarget(args[0], background, cmd.Flags().Changed("background"))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("volume") {
				volume = app.Config.DefaultVolume()
			}
			if volume < 0 || volume > 1 || math.IsNaN(volume) {
				return fmt.Errorf("громкость должна быть в диапазоне [0, 1], получено: %v", volume)
			}
			return app.playMeditation(ctx, target, volume)
		},
	}

	cmd.Flags().StringVarP(&background, "background", "b", "", "soundscape id or 'none' (defaults to the meditation's own)")
	cmd.Flags().Float64VarP(&volume, "volume", "v", 1, "narration volume from 0 to 1")
	return cmd
}

// locate возвращает локатор озвучки. Объекты хранилища получают временную ссылку.
func (app *Application) locate(med data.Meditation) (string, error) {
	if med.URL == "" {
		return "", fmt.Errorf("у медитации с ID %d отсутствует URL", med.ID)
	}
	if app.Storage == nil {
		return med.URL, nil
	}
	key, err := app.Storage.KeyFromURL(med.URL)
	if err != nil {
		return med.URL, nil
	}
	link, err := app.Storage.PresignGet(key, app.Config.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("ошибка получения ссылки: %w", err)
	}
	return link, nil
}

// resolvePlayTarget разбирает аргумент play: ID из библиотеки, путь или URL
func (app *Application) resolvePlayTarget(arg, background string, backgroundSet bool) (playTarget, error) {
	var target playTarget

	if id, err := strconv.Atoi(arg); err == nil {
		med, err := app.Library.Get(id)
		if err != nil {
			return target, fmt.Errorf("медитация с ID %d: %w", id, err)
		}
		locator, err := app.locate(med)
		if err != nil {
			return target, err
		}
		target = playTarget{Meditation: med, Locator: locator, Background: med.Background}
	} else {
		if !streaming.IsRemote(arg) {
			if _, err := os.Stat(arg); err != nil {
				return target, fmt.Errorf("файл не найден: %s", arg)
			}
		}
		target = playTarget{
			Meditation: data.Meditation{Title: sourceTitle(arg)},
			Locator:    arg,
		}
	}

	if backgroundSet {
		bg, err := app.checkBackground(background)
		if err != nil {
			return target, err
		}
		target.Background = bg
	}
	return target, nil
}

// sourceTitle имя файла без расширения и параметров запроса
func sourceTitle(source string) string {
	if i := strings.IndexAny(source, "?#"); i != -1 && streaming.IsRemote(source) {
		source = source[:i]
	}
	name := filepath.Base(source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// playSession состояние консольного плеера
type playSession struct {
	coordinator *player.Coordinator
	narration   string
	background  string
	volume      float64
	state       player.State
	userPaused  bool
}

// observe запоминает новое состояние и сообщает, закончилась ли озвучка
func (s *playSession) observe(st player.State) bool {
	ended := s.state.IsPlaying && !st.IsPlaying && !s.userPaused
	s.state = st
	return ended
}

// handle выполняет команду. Возвращает true, если нужно запустить воспроизведение.
func (s *playSession) handle(c command, next func(string) string) (play bool) {
	switch c {
	case cmdToggle:
		if s.state.IsPlaying {
			s.userPaused = true
			s.coordinator.Pause()
			return false
		}
		s.userPaused = false
		return true
	case cmdSeekBack, cmdSeekForward:
		delta := tuiPlayer.SeekStep
		if c == cmdSeekBack {
			delta = -delta
		}
		pos := utils.ClampDuration(s.state.CurrentTime+delta, s.state.Duration)
		s.coordinator.Seek(pos)
		s.state.CurrentTime = pos
	case cmdVolumeUp, cmdVolumeDown:
		delta := tuiPlayer.VolumeStep
		if c == cmdVolumeDown {
			delta = -delta
		}
		s.volume = utils.ClampVolume(s.volume + delta)
		s.coordinator.SetVolume(s.volume)
	case cmdBackground:
		// Смена фона не возобновляет воспроизведение
		s.background = next(s.background)
		s.coordinator.Configure(player.NewConfig(s.narration, s.background))
	}
	return false
}

func (app *Application) playMeditation(ctx context.Context, target playTarget, volume float64) error {
	logger := logging.With(app.Logger, "component", "play")
	engine := audio.NewEngine(audio.WithLogger(logger))
	coordinator := player.New(engine,
		player.WithResolver(app.Catalog),
		player.WithVolume(volume),
		player.WithLogger(logger),
	)
	defer coordinator.Close()

	session := &playSession{
		coordinator: coordinator,
		narration:   target.Locator,
		background:  target.Background,
		volume:      volume,
	}
	coordinator.Configure(player.NewConfig(target.Locator, target.Background))

	med := target.Meditation
	fmt.Printf("🧘 Сейчас играет:\n")
	if med.ID > 0 {
		fmt.Printf("   ID: %d\n", med.ID)
	}
	fmt.Printf("   Название: %s\n", med.Title)
	if med.Narrator != "" {
		fmt.Printf("   Ведущий: %s\n", med.Narrator)
	}
	if med.Intention != "" {
		fmt.Printf("   Намерение: %s\n", med.Intention)
	}
	fmt.Printf("   Фон: %s\n", app.backgroundTitle(target.Background))
	if med.Length > 0 {
		fmt.Printf("   Продолжительность: %s\n", utils.FormatDurationFromSeconds(med.Length))
	}
	fmt.Println()
	fmt.Printf("🎮 Управление:\n")
	fmt.Printf("   [Пробел] - пауза/воспроизведение\n")
	fmt.Printf("   [←/→] - перемотка на %s\n", tuiPlayer.SeekStep)
	fmt.Printf("   [+/-] - громкость\n")
	fmt.Printf("   [b] - сменить фон\n")
	fmt.Printf("   [q] - остановить и выйти\n")
	fmt.Println()

	// Включаем raw режим для чтения одиночных клавиш
	restore := enableRawMode()
	defer restore()

	commands := make(chan command, 16)
	go readCommands(os.Stdin, commands)

	playErr := make(chan error, 4)
	start := func() {
		go func() { playErr <- coordinator.Play(ctx) }()
	}
	start()

	updates := coordinator.Updates()
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			ended := session.observe(st)
			displayProgress(session, app.backgroundTitle(session.background))
			if ended {
				fmt.Print("\r\n✅ Медитация завершена\r\n")
				return nil
			}
		case err := <-playErr:
			if err != nil && !errors.Is(err, player.ErrPlayInterrupted) {
				fmt.Print("\r\n")
				return fmt.Errorf("ошибка запуска воспроизведения: %w", err)
			}
		case c := <-commands:
			if c == cmdQuit {
				fmt.Print("\r\n⏹️  Воспроизведение остановлено пользователем\r\n")
				return nil
			}
			if session.handle(c, app.Catalog.Next) {
				start()
			}
			displayProgress(session, app.backgroundTitle(session.background))
		case <-ctx.Done():
			fmt.Print("\r\n🚫 Операция отменена\r\n")
			return nil
		}
	}
}

// backgroundTitle название фона для вывода
func (app *Application) backgroundTitle(id string) string {
	if id == "" {
		return "без фона"
	}
	if e, ok := app.Catalog.Lookup(id); ok && e.Title != "" {
		return e.Title
	}
	return id
}

// displayProgress перерисовывает строку прогресса
func displayProgress(s *playSession, background string) {
	fmt.Printf("\r\033[K%s", progressLine(s.state, s.volume, background))
}

// progressLine строка состояния: значок, время, громкость и фон
func progressLine(st player.State, volume float64, background string) string {
	icon := "▶️ "
	if !st.IsPlaying {
		icon = "⏸️ "
	}

	if st.IsLoading {
		return fmt.Sprintf("%s %s | Громкость: %d%% | Фон: %s",
			icon,
			streaming.GetStreamStatus(true, 0),
			int(math.Round(volume*100)),
			background)
	}

	var percent float64
	if st.Duration > 0 {
		percent = float64(st.CurrentTime) / float64(st.Duration) * 100
	}
	return fmt.Sprintf("%s %.1f%% | %s / %s | Громкость: %d%% | Фон: %s",
		icon,
		percent,
		utils.FormatDuration(st.CurrentTime),
		utils.FormatDuration(st.Duration),
		int(math.Round(volume*100)),
		background)
}
