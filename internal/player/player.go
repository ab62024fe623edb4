// Package player содержит координатор воспроизведения медитации: дорожку с
// озвучкой и зацикленную фоновую дорожку под общим управлением
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ssbullock/serene/internal/media"
)

// BackgroundRatio доля громкости фоновой дорожки от громкости озвучки
const BackgroundRatio = 0.3

// State публикуемый снимок состояния воспроизведения
type State struct {
	IsPlaying   bool          // Играет ли озвучка
	CurrentTime time.Duration // Позиция озвучки
	Duration    time.Duration // Длительность озвучки, 0 пока неизвестна
	IsLoading   bool          // true, пока длительность озвучки неизвестна
}

// Resolver сопоставляет идентификатор фоновой дорожки с локатором ресурса
type Resolver interface {
	Resolve(id string) (string, error)
}

// ResolverFunc адаптер функции к Resolver
type ResolverFunc func(id string) (string, error)

// Resolve реализует Resolver
func (f ResolverFunc) Resolve(id string) (string, error) { return f(id) }

// handle дорожка, принадлежащая координатору
type handle struct {
	id      string // Значение из Config
	locator string // Локатор, переданный движку
	track   media.Track
}

// Option настраивает координатор
type Option func(*Coordinator)

// WithResolver задает источник локаторов фоновых дорожек
func WithResolver(r Resolver) Option {
	return func(c *Coordinator) { c.resolver = r }
}

// WithLogger задает логгер для диагностики
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithDiagnostics задает обработчик ошибок, которые не возвращаются вызывающему.
// Обработчик вызывается под внутренней блокировкой и не должен обращаться к координатору.
func WithDiagnostics(fn func(error)) Option {
	return func(c *Coordinator) { c.onDiag = fn }
}

// WithVolume задает начальную громкость озвучки
func WithVolume(volume float64) Option {
	return func(c *Coordinator) { c.volume = volume }
}

// Coordinator управляет дорожкой озвучки и фоновой дорожкой
type Coordinator struct {
	engine   media.Engine
	resolver Resolver
	logger   *log.Logger
	onDiag   func(error)

	mu            sync.Mutex
	narrationLoc  Locator
	backgroundLoc Locator
	narration     *handle
	background    *handle
	volume        float64
	pauses        uint64 // Увеличивается при каждой паузе, чтобы отсеять устаревшие запуски
	state         State
	updates       chan State
	closed        bool
	starting      sync.WaitGroup // Запуски фоновой дорожки в процессе
}

// New создает координатор без дорожек
func New(engine media.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine: engine,
		resolver: ResolverFunc(func(id string) (string, error) {
			return id, nil
		}),
		logger:  log.Default(),
		volume:  1,
		state:   State{IsLoading: true},
		updates: make(chan State, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates возвращает канал с последним опубликованным состоянием.
// Непрочитанный снимок заменяется новым. Канал закрывается в Close.
func (c *Coordinator) Updates() <-chan State {
	return c.updates
}

// State возвращает текущее состояние
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config возвращает текущую привязку дорожек
func (c *Coordinator) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Config{Narration: c.narrationLoc, Background: c.backgroundLoc}
}

// Bound сообщает, создана ли дорожка озвучки
func (c *Coordinator) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.narration != nil
}

// BackgroundBound сообщает, создана ли фоновая дорожка
func (c *Coordinator) BackgroundBound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background != nil
}

// Volume возвращает последнюю установленную громкость озвучки
func (c *Coordinator) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Configure привязывает дорожки к новой конфигурации. Дорожка пересоздается
// только если ее локатор изменился.
func (c *Coordinator) Configure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if cfg.Narration != c.narrationLoc {
		c.rebindNarration(cfg.Narration)
	}
	if cfg.Background != c.backgroundLoc {
		c.rebindBackground(cfg.Background)
	}
}

// rebindNarration должен вызываться под мьютексом
func (c *Coordinator) rebindNarration(loc Locator) {
	if c.state.IsPlaying && c.background != nil {
		c.pauseTrack(c.background)
	}
	c.destroy(c.narration)
	c.narration = nil
	c.narrationLoc = loc
	c.state = State{IsLoading: true}

	if value, ok := loc.Get(); ok {
		h := &handle{id: value, locator: value}
		track, err := c.engine.Open(value, media.TrackOptions{
			Volume:   c.volume,
			Listener: c.narrationListener(h),
		})
		if err != nil {
			c.diagnose(&OpenError{Locator: value, Err: err})
		} else {
			h.track = track
			c.narration = h
		}
	}

	c.publish()
}

// rebindBackground должен вызываться под мьютексом
func (c *Coordinator) rebindBackground(loc Locator) {
	c.destroy(c.background)
	c.background = nil
	c.backgroundLoc = loc

	id, ok := loc.Get()
	if !ok {
		return
	}

	locator, err := c.resolver.Resolve(id)
	if err != nil {
		c.diagnose(&ResolutionError{ID: id, Err: err})
		return
	}

	h := &handle{id: id, locator: locator}
	track, err := c.engine.Open(locator, media.TrackOptions{
		Loop:     true,
		Volume:   c.volume * BackgroundRatio,
		Listener: c.backgroundListener(h),
	})
	if err != nil {
		c.diagnose(&SecondaryPlaybackError{Locator: locator, Err: err})
		return
	}
	h.track = track
	c.background = h
}

// destroy ставит дорожку на паузу и закрывает ее
func (c *Coordinator) destroy(h *handle) {
	if h == nil {
		return
	}
	c.pauseTrack(h)
	if err := h.track.Close(); err != nil {
		c.diagnose(fmt.Errorf("ошибка закрытия дорожки %s: %w", h.locator, err))
	}
}

func (c *Coordinator) pauseTrack(h *handle) {
	if err := h.track.Pause(); err != nil {
		c.diagnose(&PauseError{Locator: h.locator, Err: err})
	}
}

// Play запускает озвучку, а после успешного запуска - фоновую дорожку в отдельной горутине
func (c *Coordinator) Play(ctx context.Context) error {
	c.mu.Lock()
	h := c.narration
	if c.closed || h == nil {
		c.mu.Unlock()
		return nil
	}
	seq := c.pauses
	c.mu.Unlock()

	err := h.track.Play(ctx)

	c.mu.Lock()
	if c.closed || c.narration != h {
		c.mu.Unlock()
		return ErrPlayInterrupted
	}
	if err != nil {
		c.mu.Unlock()
		return &PlaybackStartError{Locator: h.locator, Err: err}
	}
	if c.pauses != seq {
		c.pauseTrack(h)
		c.mu.Unlock()
		return ErrPlayInterrupted
	}

	c.state.IsPlaying = true
	c.publish()
	bg := c.background
	c.mu.Unlock()

	// Фон загружается без ожидания: Play возвращается сразу после старта озвучки.
	// Контекст вызывающего не отменяет загрузку, ее прерывает закрытие дорожки.
	if bg != nil {
		c.starting.Add(1)
		go func() {
			defer c.starting.Done()
			c.startBackground(context.WithoutCancel(ctx), h, bg, seq)
		}()
	}
	return nil
}

// startBackground запускает фоновую дорожку; ошибки только логируются
func (c *Coordinator) startBackground(ctx context.Context, narration, bg *handle, seq uint64) {
	err := bg.track.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.background != bg {
		return
	}
	if err != nil {
		c.diagnose(&SecondaryPlaybackError{Locator: bg.locator, Err: err})
		return
	}
	// Пока фон запускался, озвучку могли остановить
	if c.narration != narration || c.pauses != seq {
		c.pauseTrack(bg)
	}
}

// Pause ставит обе дорожки на паузу
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.narration == nil {
		return
	}

	c.pauses++
	c.pauseTrack(c.narration)
	if c.background != nil {
		c.pauseTrack(c.background)
	}
	c.state.IsPlaying = false
	c.publish()
}

// Seek перематывает озвучку. Позиция не ограничивается, это делает вызывающий.
func (c *Coordinator) Seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.narration == nil {
		return
	}

	if err := c.narration.track.Seek(pos); err != nil {
		c.diagnose(fmt.Errorf("ошибка перемотки %s: %w", c.narration.locator, err))
	}
	c.state.CurrentTime = pos
	c.publish()
}

// SetVolume задает громкость озвучки, фон получает BackgroundRatio от нее
func (c *Coordinator) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.narration == nil {
		return
	}

	c.volume = volume
	c.narration.track.SetVolume(volume)
	if c.background != nil {
		c.background.track.SetVolume(volume * BackgroundRatio)
	}
}

// Close останавливает и освобождает обе дорожки. Повторный вызов ничего не делает.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.destroy(c.narration)
	c.destroy(c.background)
	c.narration = nil
	c.background = nil
	c.state.IsPlaying = false
	c.publish()
	c.closed = true
	close(c.updates)
	return nil
}

func (c *Coordinator) narrationListener(h *handle) media.Listener {
	return func(ev media.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || c.narration != h {
			return
		}

		switch ev.Kind {
		case media.EventLoadedMetadata:
			c.state.Duration = ev.Duration
			c.state.IsLoading = false
		case media.EventTimeUpdate:
			c.state.CurrentTime = ev.Position
			if ev.Duration > 0 {
				c.state.Duration = ev.Duration
			}
		case media.EventEnded:
			c.finish()
		case media.EventError:
			c.diagnose(fmt.Errorf("ошибка дорожки озвучки %s: %w", h.locator, ev.Err))
			return
		}
		c.publish()
	}
}

func (c *Coordinator) backgroundListener(h *handle) media.Listener {
	return func(ev media.Event) {
		if ev.Kind != media.EventError {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || c.background != h {
			return
		}
		c.diagnose(&SecondaryPlaybackError{Locator: h.locator, Err: ev.Err})
	}
}

// finish обрабатывает окончание озвучки (под мьютексом)
func (c *Coordinator) finish() {
	c.pauses++
	c.pauseTrack(c.narration)
	if bg := c.background; bg != nil {
		c.pauseTrack(bg)
		if err := bg.track.Seek(0); err != nil {
			c.diagnose(&SecondaryPlaybackError{Locator: bg.locator, Err: err})
		}
	}
	c.state.IsPlaying = false
}

// publish заменяет непрочитанный снимок новым (под мьютексом)
func (c *Coordinator) publish() {
	s := c.state
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- s:
	default:
	}
}

func (c *Coordinator) diagnose(err error) {
	c.logger.Warn("диагностика плеера", "err", err)
	if c.onDiag != nil {
		c.onDiag(err)
	}
}
