package main

import (
	"io"
	"os"

	"github.com/charmbracelet/x/term"
)

// command действие плеера, выбранное клавишей
type command int

const (
	cmdToggle command = iota + 1
	cmdSeekBack
	cmdSeekForward
	cmdVolumeUp
	cmdVolumeDown
	cmdBackground
	cmdQuit
)

// parseKeys переводит прочитанные байты в команды.
// Стрелки приходят как ESC [ D и ESC [ C, Ctrl+C в raw режиме как байт 3.
func parseKeys(buf []byte) []command {
	var cmds []command
	for i := 0; i < len(buf); i++ {
		switch b := buf[i]; b {
		case 0x1b:
			if i+2 < len(buf) && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'D':
					cmds = append(cmds, cmdSeekBack)
				case 'C':
					cmds = append(cmds, cmdSeekForward)
				}
				i += 2
				continue
			}
			cmds = append(cmds, cmdQuit)
		case ' ', '\r', '\n':
			cmds = append(cmds, cmdToggle)
		case 'h':
			cmds = append(cmds, cmdSeekBack)
		case 'l':
			cmds = append(cmds, cmdSeekForward)
		case '+', '=':
			cmds = append(cmds, cmdVolumeUp)
		case '-', '_':
			cmds = append(cmds, cmdVolumeDown)
		case 'b':
			cmds = append(cmds, cmdBackground)
		case 'q', 3:
			cmds = append(cmds, cmdQuit)
		}
	}
	return cmds
}

// readCommands читает клавиши до ошибки чтения
func readCommands(r io.Reader, out chan<- command) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, c := range parseKeys(buf[:n]) {
			out <- c
		}
		if err != nil {
			return
		}
	}
}

// enableRawMode включает raw режим терминала и возвращает функцию восстановления.
// Если stdin не терминал, ничего не делает.
func enableRawMode() func() {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	return func() { _ = term.Restore(fd, state) }
}
