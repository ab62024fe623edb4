// Package media описывает контракт между координатором воспроизведения и
// движком, который умеет декодировать и проигрывать аудио
package media

import (
	"context"
	"time"
)

// EventKind определяет тип события дорожки
type EventKind int

const (
	// EventLoadedMetadata - длительность дорожки стала известна
	EventLoadedMetadata EventKind = iota
	// EventTimeUpdate - позиция воспроизведения продвинулась
	EventTimeUpdate
	// EventEnded - дорожка доиграла до конца
	EventEnded
	// EventError - ошибка загрузки или воспроизведения
	EventError
)

// String возвращает имя события
func (k EventKind) String() string {
	switch k {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventTimeUpdate:
		return "timeupdate"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event событие жизненного цикла дорожки
type Event struct {
	Kind     EventKind
	Position time.Duration // Текущая позиция (timeupdate)
	Duration time.Duration // Общая длительность, 0 пока неизвестна
	Err      error         // Причина (error)
}

// Listener получает события дорожки.
//
// Движок вызывает слушателя последовательно, в порядке возникновения событий,
// и никогда синхронно изнутри Open или методов Track.
type Listener func(Event)

// TrackOptions параметры создания дорожки
type TrackOptions struct {
	Loop     bool
	Volume   float64
	Listener Listener
}

// Track декодируемый аудиоресурс, привязанный к одному локатору
type Track interface {
	// Play запускает воспроизведение и ждет подтверждения от движка
	Play(ctx context.Context) error
	Pause() error
	Seek(pos time.Duration) error
	SetVolume(volume float64)
	Volume() float64
	Position() time.Duration
	// Close останавливает дорожку, отключает слушателя и освобождает ресурсы
	Close() error
}

// Engine создает дорожки по локатору
type Engine interface {
	Open(locator string, opts TrackOptions) (Track, error)
}
