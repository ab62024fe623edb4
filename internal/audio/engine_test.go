package audio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssbullock/serene/internal/media"
)

// fakeOutput вывод, который тест прокручивает вручную
type fakeOutput struct {
	mu        sync.Mutex
	listMu    sync.Mutex
	streamers []beep.Streamer
}

func (f *fakeOutput) Init(beep.SampleRate) error { return nil }

func (f *fakeOutput) Play(s beep.Streamer) {
	f.listMu.Lock()
	defer f.listMu.Unlock()
	f.streamers = append(f.streamers, s)
}

func (f *fakeOutput) Lock()   { f.mu.Lock() }
func (f *fakeOutput) Unlock() { f.mu.Unlock() }

func (f *fakeOutput) attached() []beep.Streamer {
	f.listMu.Lock()
	defer f.listMu.Unlock()
	return append([]beep.Streamer(nil), f.streamers...)
}

// pull прокручивает streamer на n сэмплов и сообщает, продолжается ли поток
func (f *fakeOutput) pull(s beep.Streamer, n int) bool {
	buf := make([][2]float64, 512)
	for n > 0 {
		chunk := buf
		if n < len(chunk) {
			chunk = chunk[:n]
		}
		f.Lock()
		got, ok := s.Stream(chunk)
		f.Unlock()
		if !ok {
			return false
		}
		n -= got
	}
	return true
}

func writeWAV(t *testing.T, name string, rate beep.SampleRate, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(rate.N(d), beep.Silence(-1)), format))
	return path
}

type recorder struct {
	events chan media.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan media.Event, 1024)}
}

func (r *recorder) listen(ev media.Event) { r.events <- ev }

func (r *recorder) wait(t *testing.T, kind media.EventKind) media.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("событие %s не получено", kind)
			return media.Event{}
		}
	}
}

func newTestEngine(out Output) *Engine {
	return NewEngine(
		WithOutput(out),
		WithSampleRate(44100),
		WithTickInterval(5*time.Millisecond),
		WithLogger(log.New(io.Discard)),
	)
}

func TestOpenEmitsMetadata(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "bell.wav", 44100, 500*time.Millisecond), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	ev := rec.wait(t, media.EventLoadedMetadata)
	assert.Equal(t, 500*time.Millisecond, ev.Duration)
}

func TestOpenResampledMetadata(t *testing.T) {
	engine := newTestEngine(&fakeOutput{})
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "low.wav", 22050, 500*time.Millisecond), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, 500*time.Millisecond, rec.wait(t, media.EventLoadedMetadata).Duration)
}

func TestOpenEmptyLocator(t *testing.T) {
	_, err := newTestEngine(&fakeOutput{}).Open("  ", media.TrackOptions{})
	assert.ErrorIs(t, err, ErrEmptyLocator)
}

func TestPlayUntilEnd(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "narration.wav", 44100, 200*time.Millisecond), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Play(context.Background()))
	streamers := out.attached()
	require.Len(t, streamers, 1)

	assert.False(t, out.pull(streamers[0], 44100))
	rec.wait(t, media.EventEnded)

	// Повторный запуск начинается сначала
	require.NoError(t, tr.Play(context.Background()))
	assert.Len(t, out.attached(), 2)
	assert.Equal(t, time.Duration(0), tr.Position())
}

func TestTimeUpdateWhilePlaying(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "narration.wav", 44100, time.Second), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Play(context.Background()))
	require.True(t, out.pull(out.attached()[0], 4410))

	// Ранние события могут прийти до прокрутки
	for {
		ev := rec.wait(t, media.EventTimeUpdate)
		assert.Equal(t, time.Second, ev.Duration)
		if ev.Position >= 100*time.Millisecond {
			break
		}
	}
}

func TestLoopNeverEnds(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "rain.wav", 44100, 100*time.Millisecond), media.TrackOptions{Loop: true, Volume: 0.3, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Play(context.Background()))
	assert.True(t, out.pull(out.attached()[0], 44100))
}

func TestPauseStreamsSilence(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)

	tr, err := engine.Open(writeWAV(t, "narration.wav", 44100, 200*time.Millisecond), media.TrackOptions{Volume: 1})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Play(context.Background()))
	require.NoError(t, tr.Pause())

	// На паузе поток не заканчивается и позиция не двигается
	assert.True(t, out.pull(out.attached()[0], 44100))
	assert.Equal(t, time.Duration(0), tr.Position())
}

func TestSeekClampsToLength(t *testing.T) {
	engine := newTestEngine(&fakeOutput{})
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "narration.wav", 44100, 500*time.Millisecond), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	rec.wait(t, media.EventLoadedMetadata)

	require.NoError(t, tr.Seek(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, tr.Position())

	require.NoError(t, tr.Seek(10*time.Second))
	assert.Equal(t, 500*time.Millisecond, tr.Position())
}

func TestSeekBeforeLoadIsApplied(t *testing.T) {
	path := writeWAV(t, "narration.wav", 44100, time.Second)
	gate := make(chan struct{})
	engine := NewEngine(
		WithOutput(&fakeOutput{}),
		WithTickInterval(5*time.Millisecond),
		WithLogger(log.New(io.Discard)),
		WithOpener(func(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return os.Open(locator)
		}),
	)
	rec := newRecorder()

	tr, err := engine.Open(path, media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	// Ресурс еще открывается: позиция запоминается
	require.NoError(t, tr.Seek(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, tr.Position())

	close(gate)
	rec.wait(t, media.EventLoadedMetadata)
	assert.Equal(t, 250*time.Millisecond, tr.Position())
}

func TestSeekBeforeLoadIsClamped(t *testing.T) {
	path := writeWAV(t, "narration.wav", 44100, 500*time.Millisecond)
	gate := make(chan struct{})
	engine := NewEngine(
		WithOutput(&fakeOutput{}),
		WithLogger(log.New(io.Discard)),
		WithOpener(func(_ context.Context, locator string) (io.ReadSeekCloser, error) {
			<-gate
			return os.Open(locator)
		}),
	)
	rec := newRecorder()

	tr, err := engine.Open(path, media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Seek(15*time.Second))
	close(gate)
	rec.wait(t, media.EventLoadedMetadata)
	assert.Equal(t, 500*time.Millisecond, tr.Position())
}

func TestMissingFileReportsError(t *testing.T) {
	engine := newTestEngine(&fakeOutput{})
	rec := newRecorder()

	tr, err := engine.Open(filepath.Join(t.TempDir(), "missing.mp3"), media.TrackOptions{Listener: rec.listen})
	require.NoError(t, err)
	defer tr.Close()

	ev := rec.wait(t, media.EventError)
	assert.Error(t, ev.Err)
	assert.Error(t, tr.Play(context.Background()))
	assert.ErrorIs(t, tr.Seek(time.Second), ErrNotReady)
}

func TestCloseStopsTrack(t *testing.T) {
	out := &fakeOutput{}
	engine := newTestEngine(out)
	rec := newRecorder()

	tr, err := engine.Open(writeWAV(t, "narration.wav", 44100, 200*time.Millisecond), media.TrackOptions{Volume: 1, Listener: rec.listen})
	require.NoError(t, err)
	require.NoError(t, tr.Play(context.Background()))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	// Цепочка выходит из вывода без события ended
	assert.False(t, out.pull(out.attached()[0], 512))
	assert.ErrorIs(t, tr.Play(context.Background()), ErrClosed)

	timeout := time.After(50 * time.Millisecond)
	for {
		select {
		case ev := <-rec.events:
			if ev.Kind == media.EventEnded {
				t.Fatal("после закрытия не должно быть события ended")
			}
		case <-timeout:
			return
		}
	}
}

func TestPlayRespectsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	engine := NewEngine(
		WithOutput(&fakeOutput{}),
		WithLogger(log.New(io.Discard)),
		WithOpener(func(ctx context.Context, _ string) (io.ReadSeekCloser, error) {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return nil, context.Canceled
		}),
	)

	tr, err := engine.Open("https://cdn.example.com/slow.mp3", media.TrackOptions{})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Play(ctx), context.DeadlineExceeded)
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		level  float64
		volume float64
		silent bool
	}{
		{1, 0, false},
		{0.5, -1, false},
		{0.25, -2, false},
		{0, 0, true},
	}

	for _, tt := range tests {
		v := &effects.Volume{Base: 2}
		applyVolume(v, tt.level)
		assert.InDelta(t, tt.volume, v.Volume, 1e-9, "level %v", tt.level)
		assert.Equal(t, tt.silent, v.Silent, "level %v", tt.level)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		locator  string
		expected string
	}{
		{"/tmp/a.WAV", ".wav"},
		{"file:///tmp/a.mp3", ".mp3"},
		{"https://x.s3.amazonaws.com/r.mp3?X-Amz-Signature=abc", ".mp3"},
		{"https://cdn.example.com/ocean", ""},
		{"narration", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatOf(tt.locator), tt.locator)
	}
}

func TestEventQueueKeepsOrder(t *testing.T) {
	got := make(chan time.Duration, 100)
	q := newEventQueue(func(ev media.Event) { got <- ev.Position })
	go q.run()
	defer q.close()

	for i := 0; i < 100; i++ {
		q.push(media.Event{Kind: media.EventTimeUpdate, Position: time.Duration(i)})
	}
	for i := 0; i < 100; i++ {
		select {
		case pos := <-got:
			require.Equal(t, time.Duration(i), pos)
		case <-time.After(time.Second):
			t.Fatal("событие не доставлено")
		}
	}
}
