package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/ssbullock/serene/internal/media"
)

// Track дорожка движка. Цепочка: source -> Loop -> Resample -> Volume -> Ctrl.
//
// Порядок блокировок: сначала mu, затем Output.Lock. Колбэк окончания
// вызывается под блокировкой вывода, поэтому он использует только атомарные флаги.
type Track struct {
	engine  *Engine
	locator string
	loop    bool
	events  *eventQueue

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{} // Закрывается по окончании загрузки

	closed   atomic.Bool
	attached atomic.Bool // Цепочка добавлена в вывод
	ended    atomic.Bool // Дорожка доиграла до конца

	mu      sync.Mutex
	loadErr error
	source  beep.StreamSeekCloser
	format  beep.Format
	volume  *effects.Volume
	ctrl    *beep.Ctrl
	level   float64
	pending *time.Duration // Перемотка, запрошенная до окончания загрузки
}

// load открывает и декодирует ресурс
func (t *Track) load() {
	defer close(t.ready)

	if err := t.decode(); err != nil {
		t.mu.Lock()
		t.loadErr = err
		t.pending = nil
		t.mu.Unlock()
		if !t.closed.Load() {
			t.engine.logger.Warn("ошибка загрузки дорожки", "locator", t.locator, "err", err)
			t.events.push(media.Event{Kind: media.EventError, Err: err})
		}
		return
	}

	t.events.push(media.Event{Kind: media.EventLoadedMetadata, Duration: t.Duration()})
}

func (t *Track) decode() error {
	rc, err := t.engine.open(t.ctx, t.locator)
	if err != nil {
		return fmt.Errorf("ошибка открытия ресурса: %w", err)
	}

	source, format, err := decode(t.locator, rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("ошибка декодирования: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		source.Close()
		return ErrClosed
	}

	var s beep.Streamer = source
	if t.loop {
		s = beep.Loop(-1, source)
	}
	if format.SampleRate != t.engine.rate {
		s = beep.Resample(resampleQuality, format.SampleRate, t.engine.rate, s)
	}

	// Цепочка еще не в выводе, поэтому перемотка без блокировки динамиков
	if t.pending != nil {
		if err := source.Seek(clampSamples(format.SampleRate.N(*t.pending), source.Len())); err != nil {
			source.Close()
			return fmt.Errorf("ошибка перемотки: %w", err)
		}
		t.pending = nil
	}

	t.volume = &effects.Volume{Streamer: s, Base: 2}
	applyVolume(t.volume, t.level)
	t.ctrl = &beep.Ctrl{Streamer: t.volume, Paused: true}
	t.source = source
	t.format = format
	return nil
}

// Play ждет окончания загрузки и запускает воспроизведение
func (t *Track) Play(ctx context.Context) error {
	select {
	case <-t.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return ErrClosed
	}
	if t.loadErr != nil {
		return t.loadErr
	}

	out := t.engine.out
	if err := out.Init(t.engine.rate); err != nil {
		return fmt.Errorf("ошибка инициализации динамиков: %w", err)
	}

	if t.attached.Load() {
		out.Lock()
		t.ctrl.Paused = false
		out.Unlock()
		return nil
	}

	// После окончания начинаем сначала
	if t.ended.Swap(false) {
		out.Lock()
		err := t.source.Seek(0)
		out.Unlock()
		if err != nil {
			return fmt.Errorf("ошибка перемотки в начало: %w", err)
		}
	}

	t.ctrl.Paused = false
	t.attached.Store(true)
	out.Play(beep.Seq(t.ctrl, beep.Callback(t.onEnd)))
	return nil
}

// onEnd вызывается выводом под его блокировкой
func (t *Track) onEnd() {
	t.attached.Store(false)
	if t.closed.Load() {
		return
	}
	t.ended.Store(true)
	t.events.push(media.Event{Kind: media.EventEnded})
}

// Pause приостанавливает воспроизведение
func (t *Track) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctrl == nil {
		return nil
	}

	t.engine.out.Lock()
	t.ctrl.Paused = true
	t.engine.out.Unlock()
	return nil
}

// Seek перематывает дорожку. Позиция ограничивается длиной ресурса.
// До окончания загрузки позиция запоминается и применяется после декодирования.
func (t *Track) Seek(pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return ErrClosed
	}
	if t.source == nil {
		if t.loadErr != nil {
			return ErrNotReady
		}
		if pos < 0 {
			pos = 0
		}
		t.pending = &pos
		return nil
	}

	length := t.source.Len()
	n := clampSamples(t.format.SampleRate.N(pos), length)

	t.engine.out.Lock()
	err := t.source.Seek(n)
	t.engine.out.Unlock()
	if err != nil {
		return fmt.Errorf("ошибка перемотки: %w", err)
	}

	if n < length {
		t.ended.Store(false)
	}
	return nil
}

// clampSamples ограничивает позицию диапазоном [0, length]
func clampSamples(n, length int) int {
	if n < 0 {
		return 0
	}
	if length > 0 && n > length {
		return length
	}
	return n
}

// SetVolume задает громкость 0..1
func (t *Track) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.level = clampLevel(volume)
	if t.volume == nil {
		return
	}

	t.engine.out.Lock()
	applyVolume(t.volume, t.level)
	t.engine.out.Unlock()
}

// Volume возвращает текущую громкость
func (t *Track) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Position возвращает текущую позицию
func (t *Track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source == nil {
		if t.pending != nil {
			return *t.pending
		}
		return 0
	}

	t.engine.out.Lock()
	pos := t.source.Position()
	t.engine.out.Unlock()
	return t.format.SampleRate.D(pos)
}

// Duration возвращает длительность ресурса, 0 пока он не загружен
func (t *Track) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source == nil {
		return 0
	}

	t.engine.out.Lock()
	length := t.source.Len()
	t.engine.out.Unlock()
	return t.format.SampleRate.D(length)
}

// Close убирает дорожку из вывода и освобождает ресурс
func (t *Track) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.cancel()
	t.events.close()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctrl != nil {
		t.engine.out.Lock()
		t.ctrl.Streamer = nil
		t.engine.out.Unlock()
	}

	if t.source != nil {
		if err := t.source.Close(); err != nil {
			return fmt.Errorf("ошибка закрытия ресурса: %w", err)
		}
	}
	return nil
}

// monitor отправляет timeupdate, пока дорожка играет
func (t *Track) monitor() {
	ticker := time.NewTicker(t.engine.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}

		if !t.attached.Load() {
			continue
		}

		t.mu.Lock()
		if t.ctrl == nil || t.closed.Load() {
			t.mu.Unlock()
			continue
		}
		t.engine.out.Lock()
		paused := t.ctrl.Paused
		pos := t.source.Position()
		length := t.source.Len()
		t.engine.out.Unlock()
		rate := t.format.SampleRate
		t.mu.Unlock()

		if paused {
			continue
		}

		t.events.push(media.Event{
			Kind:     media.EventTimeUpdate,
			Position: rate.D(pos),
			Duration: rate.D(length),
		})
	}
}
