// Package logging создает логгеры приложения
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New создает логгер с отметками времени. Пустой writer означает os.Stderr.
func New(w io.Writer, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})

	if level == "" {
		return logger, nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("неверный уровень логирования %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// With создает дочерний логгер с постоянными полями
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// Discard логгер, который ничего не пишет
func Discard() *log.Logger {
	return log.New(io.Discard)
}
