package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output приемник звука. Все дорожки движка смешиваются в одном выводе.
type Output interface {
	Init(rate beep.SampleRate) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// speakerOutput вывод на системные динамики через beep/speaker
type speakerOutput struct {
	once sync.Once
	err  error
}

var defaultSpeaker = &speakerOutput{}

// Speaker возвращает общий вывод на динамики
func Speaker() Output {
	return defaultSpeaker
}

// Init инициализирует динамики (только один раз)
func (s *speakerOutput) Init(rate beep.SampleRate) error {
	s.once.Do(func() {
		s.err = speaker.Init(rate, rate.N(time.Second/10))
	})
	return s.err
}

func (s *speakerOutput) Play(st beep.Streamer) { speaker.Play(st) }
func (s *speakerOutput) Lock()                 { speaker.Lock() }
func (s *speakerOutput) Unlock()               { speaker.Unlock() }
