// Package mediatest содержит управляемые из тестов реализации media.Engine и media.Track
package mediatest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ssbullock/serene/internal/media"
)

// ErrClosed возвращается при обращении к закрытой дорожке
var ErrClosed = errors.New("mediatest: дорожка закрыта")

// Engine фейковый движок, запоминающий все открытые дорожки
type Engine struct {
	mu       sync.Mutex
	tracks   []*Track
	openErrs map[string]error
	playErrs map[string]error
}

// NewEngine создает фейковый движок
func NewEngine() *Engine {
	return &Engine{
		openErrs: make(map[string]error),
		playErrs: make(map[string]error),
	}
}

// FailOpen заставляет Open вернуть ошибку для указанного локатора
func (e *Engine) FailOpen(locator string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErrs[locator] = err
}

// FailPlay задает ошибку Play для всех будущих дорожек с указанным локатором
func (e *Engine) FailPlay(locator string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErrs[locator] = err
}

// Open реализует media.Engine
func (e *Engine) Open(locator string, opts media.TrackOptions) (media.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err, ok := e.openErrs[locator]; ok {
		return nil, err
	}

	t := &Track{
		Locator:  locator,
		Loop:     opts.Loop,
		volume:   opts.Volume,
		listener: opts.Listener,
		playErr:  e.playErrs[locator],
	}
	e.tracks = append(e.tracks, t)
	return t, nil
}

// Tracks возвращает все дорожки в порядке открытия
func (e *Engine) Tracks() []*Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Track, len(e.tracks))
	copy(out, e.tracks)
	return out
}

// Last возвращает последнюю открытую дорожку с указанным локатором
func (e *Engine) Last(locator string) *Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.tracks) - 1; i >= 0; i-- {
		if e.tracks[i].Locator == locator {
			return e.tracks[i]
		}
	}
	return nil
}

// Track фейковая дорожка
type Track struct {
	Locator string
	Loop    bool

	mu       sync.Mutex
	listener media.Listener
	playing  bool
	closed   bool
	position time.Duration
	volume   float64
	playErr  error
	pauseErr error
	gate     chan struct{}
	entered  chan struct{}
	plays    int
	pauses   int
}

// SetPlayError задает ошибку, которую вернет следующий Play
func (t *Track) SetPlayError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playErr = err
}

// SetPauseError задает ошибку, которую вернет Pause
func (t *Track) SetPauseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseErr = err
}

// HoldPlay заставляет Play ждать до вызова release.
// Канал entered закрывается, когда Play начал ожидание.
func (t *Track) HoldPlay() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	in := make(chan struct{})
	t.mu.Lock()
	t.gate = gate
	t.entered = in
	t.mu.Unlock()
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

// Play реализует media.Track
func (t *Track) Play(ctx context.Context) error {
	t.mu.Lock()
	gate, entered := t.gate, t.entered
	t.gate, t.entered = nil, nil
	t.mu.Unlock()

	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.plays++
	if t.closed {
		return ErrClosed
	}
	if t.playErr != nil {
		return t.playErr
	}
	t.playing = true
	return nil
}

// Pause реализует media.Track
func (t *Track) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauses++
	t.playing = false
	return t.pauseErr
}

// Seek реализует media.Track
func (t *Track) Seek(pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = pos
	return nil
}

// SetVolume реализует media.Track
func (t *Track) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = volume
}

// Volume реализует media.Track
func (t *Track) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Position реализует media.Track
func (t *Track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Close реализует media.Track
func (t *Track) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.closed = true
	t.listener = nil
	return nil
}

// Playing сообщает, играет ли дорожка
func (t *Track) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Closed сообщает, была ли дорожка закрыта
func (t *Track) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// PlayCalls возвращает число вызовов Play
func (t *Track) PlayCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plays
}

// Fire доставляет событие слушателю, если дорожка еще не закрыта.
// Возвращает false, если слушатель уже отключен.
func (t *Track) Fire(ev media.Event) bool {
	t.mu.Lock()
	l := t.listener
	if ev.Kind == media.EventTimeUpdate {
		t.position = ev.Position
	}
	if ev.Kind == media.EventEnded {
		t.playing = false
	}
	t.mu.Unlock()

	if l == nil {
		return false
	}
	l(ev)
	return true
}
