package player

import (
	"errors"
	"fmt"
)

// ErrPlayInterrupted возвращается из Play, если пока запуск ожидал подтверждения,
// дорожку поставили на паузу, заменили или закрыли
var ErrPlayInterrupted = errors.New("запуск воспроизведения прерван")

// ResolutionError фоновую дорожку не удалось сопоставить с ресурсом
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("фоновая дорожка %q не найдена: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// OpenError движок не смог создать дорожку
type OpenError struct {
	Locator string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("ошибка создания дорожки %s: %v", e.Locator, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// PlaybackStartError озвучка не запустилась
type PlaybackStartError struct {
	Locator string
	Err     error
}

func (e *PlaybackStartError) Error() string {
	return fmt.Sprintf("ошибка запуска воспроизведения %s: %v", e.Locator, e.Err)
}

func (e *PlaybackStartError) Unwrap() error { return e.Err }

// SecondaryPlaybackError ошибка фоновой дорожки
type SecondaryPlaybackError struct {
	Locator string
	Err     error
}

func (e *SecondaryPlaybackError) Error() string {
	return fmt.Sprintf("ошибка фоновой дорожки %s: %v", e.Locator, e.Err)
}

func (e *SecondaryPlaybackError) Unwrap() error { return e.Err }

// PauseError ошибка постановки на паузу
type PauseError struct {
	Locator string
	Err     error
}

func (e *PauseError) Error() string {
	return fmt.Sprintf("ошибка паузы %s: %v", e.Locator, e.Err)
}

func (e *PauseError) Unwrap() error { return e.Err }
