// Package audio реализует media.Engine на основе beep: декодирование MP3/WAV,
// ресемплинг, громкость, пауза и зацикливание
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/ssbullock/serene/internal/media"
	"github.com/ssbullock/serene/internal/streaming"
)

const (
	// DefaultSampleRate частота вывода
	DefaultSampleRate = beep.SampleRate(44100)
	// DefaultTickInterval период событий timeupdate
	DefaultTickInterval = 250 * time.Millisecond

	resampleQuality = 4
)

var (
	// ErrEmptyLocator пустой локатор
	ErrEmptyLocator = errors.New("пустой локатор")
	// ErrClosed дорожка закрыта
	ErrClosed = errors.New("дорожка закрыта")
	// ErrNotReady ресурс не удалось загрузить
	ErrNotReady = errors.New("ресурс не загружен")
)

// Opener открывает ресурс по локатору
type Opener func(ctx context.Context, locator string) (io.ReadSeekCloser, error)

// Engine создает дорожки, проигрываемые через общий Output
type Engine struct {
	out    Output
	rate   beep.SampleRate
	tick   time.Duration
	open   Opener
	logger *log.Logger
}

// Option настраивает движок
type Option func(*Engine)

// WithOutput задает вывод звука
func WithOutput(out Output) Option {
	return func(e *Engine) { e.out = out }
}

// WithSampleRate задает частоту вывода
func WithSampleRate(rate beep.SampleRate) Option {
	return func(e *Engine) { e.rate = rate }
}

// WithTickInterval задает период событий timeupdate
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// WithOpener задает способ открытия ресурсов
func WithOpener(open Opener) Option {
	return func(e *Engine) { e.open = open }
}

// WithLogger задает логгер
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine создает движок, по умолчанию выводящий звук на динамики
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		out:    Speaker(),
		rate:   DefaultSampleRate,
		tick:   DefaultTickInterval,
		open:   streaming.Open,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open создает дорожку и начинает загрузку ресурса в фоне.
// Метаданные приходят событием EventLoadedMetadata.
func (e *Engine) Open(locator string, opts media.TrackOptions) (media.Track, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, ErrEmptyLocator
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Track{
		engine:  e,
		locator: locator,
		loop:    opts.Loop,
		level:   clampLevel(opts.Volume),
		events:  newEventQueue(opts.Listener),
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
	}

	go t.events.run()
	go t.load()
	go t.monitor()

	e.logger.Debug("дорожка создана", "locator", locator, "loop", opts.Loop)
	return t, nil
}

// decode выбирает декодер по расширению локатора
func decode(locator string, rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch formatOf(locator) {
	case ".wav":
		return wav.Decode(rc)
	case ".mp3", "":
		return mp3.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("неподдерживаемый формат: %s", formatOf(locator))
	}
}

// formatOf возвращает расширение файла из пути или URL
func formatOf(locator string) string {
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return strings.ToLower(path.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(locator))
}

// applyVolume переводит линейную громкость 0..1 в параметры effects.Volume
func applyVolume(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

func clampLevel(level float64) float64 {
	switch {
	case math.IsNaN(level) || level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}
