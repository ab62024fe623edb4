package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssbullock/serene/internal/media"
	"github.com/ssbullock/serene/internal/media/mediatest"
)

const (
	narrationURL = "https://cdn.example.com/meditations/a.mp3"
	rainURL      = "https://cdn.example.com/soundscapes/rain.mp3"
	oceanURL     = "https://cdn.example.com/soundscapes/ocean.mp3"
)

type diagnostics struct {
	mu   sync.Mutex
	errs []error
}

func (d *diagnostics) add(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *diagnostics) all() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}

var testResolver = ResolverFunc(func(id string) (string, error) {
	switch id {
	case "rain":
		return rainURL, nil
	case "ocean":
		return oceanURL, nil
	}
	return "", errors.New("неизвестный идентификатор")
})

func newTestCoordinator(t *testing.T) (*Coordinator, *mediatest.Engine, *diagnostics) {
	t.Helper()
	engine := mediatest.NewEngine()
	diag := &diagnostics{}
	c := New(engine,
		WithResolver(testResolver),
		WithLogger(log.New(io.Discard)),
		WithDiagnostics(diag.add),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c, engine, diag
}

// play запускает воспроизведение и ждет запуска фоновой дорожки
func play(t *testing.T, c *Coordinator) {
	t.Helper()
	require.NoError(t, c.Play(context.Background()))
	c.starting.Wait()
}

// capturingEngine запоминает слушателей, переданные движку, чтобы вызывать
// их и после закрытия дорожки
type capturingEngine struct {
	*mediatest.Engine

	mu        sync.Mutex
	listeners map[string]media.Listener
}

func (e *capturingEngine) Open(locator string, opts media.TrackOptions) (media.Track, error) {
	e.mu.Lock()
	e.listeners[locator] = opts.Listener
	e.mu.Unlock()
	return e.Engine.Open(locator, opts)
}

func (e *capturingEngine) listener(locator string) media.Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listeners[locator]
}

func TestNoHandleNoOps(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	initial := c.State()

	play(t, c)
	c.Pause()
	c.Seek(10 * time.Second)
	c.SetVolume(0.2)

	assert.Equal(t, initial, c.State())
	assert.Equal(t, State{IsLoading: true}, initial)
	assert.Equal(t, 1.0, c.Volume())
	assert.False(t, c.Bound())
	assert.Empty(t, engine.Tracks())
}

func TestConfigureCreatesTracks(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)

	c.Configure(NewConfig(narrationURL, "rain"))

	require.True(t, c.Bound())
	require.True(t, c.BackgroundBound())

	narration := engine.Last(narrationURL)
	background := engine.Last(rainURL)
	require.NotNil(t, narration)
	require.NotNil(t, background)
	assert.False(t, narration.Loop)
	assert.True(t, background.Loop)
	assert.InDelta(t, 1.0, narration.Volume(), 1e-9)
	assert.InDelta(t, BackgroundRatio, background.Volume(), 1e-9)
}

func TestConfigureIsIdempotent(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	cfg := NewConfig(narrationURL, "rain")

	c.Configure(cfg)
	play(t, c)

	narration := engine.Last(narrationURL)
	narration.Fire(media.Event{Kind: media.EventTimeUpdate, Position: 30 * time.Second})

	for i := 0; i < 5; i++ {
		c.Configure(cfg)
	}
	c.Configure(NewConfig(narrationURL, "rain"))

	state := c.State()
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 30*time.Second, state.CurrentTime)
	assert.Len(t, engine.Tracks(), 2)
	assert.False(t, narration.Closed())
	assert.True(t, narration.Playing())
}

func TestBackgroundVolumeRatio(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))

	narration := engine.Last(narrationURL)
	background := engine.Last(rainURL)

	for _, v := range []float64{0, 0.1, 0.25, 0.5, 0.8, 1} {
		c.SetVolume(v)
		assert.InDelta(t, v, narration.Volume(), 1e-9)
		assert.InDelta(t, v*0.3, background.Volume(), 1e-9)
	}
}

func TestVolumeCarriesToNewBackground(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	c.SetVolume(0.5)

	c.Configure(NewConfig(narrationURL, "ocean"))

	assert.InDelta(t, 0.15, engine.Last(oceanURL).Volume(), 1e-9)
}

func TestEndedResetsBackground(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)

	background := engine.Last(rainURL)
	require.True(t, background.Playing())
	background.Fire(media.Event{Kind: media.EventTimeUpdate, Position: 40 * time.Second})

	engine.Last(narrationURL).Fire(media.Event{Kind: media.EventEnded})

	assert.False(t, c.State().IsPlaying)
	assert.Equal(t, time.Duration(0), background.Position())
	assert.False(t, background.Playing())
}

func TestBackgroundStartFailureIsSwallowed(t *testing.T) {
	c, engine, diag := newTestCoordinator(t)
	engine.FailPlay(rainURL, errors.New("NotAllowedError"))
	c.Configure(NewConfig(narrationURL, "rain"))

	err := c.Play(context.Background())

	require.NoError(t, err)
	assert.True(t, c.State().IsPlaying)

	var secondary *SecondaryPlaybackError
	require.Len(t, diag.all(), 1)
	assert.ErrorAs(t, diag.all()[0], &secondary)
}

func TestNarrationStartFailure(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))

	narration := engine.Last(narrationURL)
	cause := errors.New("decode failure")
	narration.SetPlayError(cause)

	err := c.Play(context.Background())

	var startErr *PlaybackStartError
	require.ErrorAs(t, err, &startErr)
	assert.ErrorIs(t, err, cause)
	assert.False(t, c.State().IsPlaying)
	assert.Equal(t, 0, engine.Last(rainURL).PlayCalls())

	// После ошибки координатор остается рабочим
	narration.SetPlayError(nil)
	play(t, c)
	assert.True(t, c.State().IsPlaying)
}

func TestSentinelBackground(t *testing.T) {
	tests := []struct {
		name       string
		background string
	}{
		{"none", "none"},
		{"upper case", " NONE "},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, engine, _ := newTestCoordinator(t)
			cfg := NewConfig(narrationURL, tt.background)

			c.Configure(cfg)

			assert.Equal(t, Config{Narration: Some(narrationURL)}, cfg)
			assert.False(t, c.BackgroundBound())
			assert.Len(t, engine.Tracks(), 1)
		})
	}
}

func TestSwitchBackgroundWhilePlaying(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)

	c.Configure(NewConfig(narrationURL, "ocean"))

	narration := engine.Last(narrationURL)
	rain := engine.Last(rainURL)
	ocean := engine.Last(oceanURL)
	require.NotNil(t, ocean)

	assert.False(t, narration.Closed())
	assert.True(t, narration.Playing())
	assert.True(t, rain.Closed())
	assert.False(t, ocean.Playing())
	assert.Equal(t, 0, ocean.PlayCalls())
	assert.True(t, c.State().IsPlaying)

	play(t, c)
	assert.True(t, ocean.Playing())
}

func TestNarrationChangeStopsPlayback(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)

	c.Configure(NewConfig("https://cdn.example.com/meditations/b.mp3", "rain"))

	assert.True(t, engine.Last(narrationURL).Closed())
	assert.False(t, engine.Last(rainURL).Closed())
	assert.False(t, engine.Last(rainURL).Playing())
	assert.Equal(t, State{IsLoading: true}, c.State())
}

func TestSeekIsOptimistic(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	narration := engine.Last(narrationURL)
	narration.Fire(media.Event{Kind: media.EventLoadedMetadata, Duration: 120 * time.Second})

	c.Seek(45 * time.Second)

	assert.Equal(t, 45*time.Second, c.State().CurrentTime)
	assert.Equal(t, 45*time.Second, narration.Position())
	assert.Equal(t, time.Duration(0), engine.Last(rainURL).Position())
}

func TestMetadataEvents(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, ""))
	narration := engine.Last(narrationURL)

	assert.True(t, c.State().IsLoading)

	narration.Fire(media.Event{Kind: media.EventLoadedMetadata, Duration: 120 * time.Second})
	state := c.State()
	assert.False(t, state.IsLoading)
	assert.Equal(t, 120*time.Second, state.Duration)

	narration.Fire(media.Event{Kind: media.EventTimeUpdate, Position: 10 * time.Second, Duration: 121 * time.Second})
	state = c.State()
	assert.Equal(t, 10*time.Second, state.CurrentTime)
	assert.Equal(t, 121*time.Second, state.Duration)
}

func TestBackgroundErrorOnlyDiagnosed(t *testing.T) {
	c, engine, diag := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)
	before := c.State()

	engine.Last(rainURL).Fire(media.Event{Kind: media.EventError, Err: errors.New("404")})

	assert.Equal(t, before, c.State())
	require.Len(t, diag.all(), 1)
	var secondary *SecondaryPlaybackError
	assert.ErrorAs(t, diag.all()[0], &secondary)
}

func TestPlayInterruptedByPause(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	narration := engine.Last(narrationURL)
	entered, release := narration.HoldPlay()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Play(context.Background()) }()

	<-entered
	c.Pause()
	release()

	err := <-errCh
	assert.ErrorIs(t, err, ErrPlayInterrupted)
	assert.False(t, c.State().IsPlaying)
	assert.False(t, narration.Playing())
	assert.Equal(t, 0, engine.Last(rainURL).PlayCalls())
}

func TestPlayInterruptedByReconfigure(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	narration := engine.Last(narrationURL)
	entered, release := narration.HoldPlay()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Play(context.Background()) }()

	<-entered
	c.Configure(NewConfig("https://cdn.example.com/meditations/b.mp3", "rain"))
	release()

	assert.ErrorIs(t, <-errCh, ErrPlayInterrupted)
	assert.False(t, c.State().IsPlaying)
}

func TestResolutionFailureKeepsNarration(t *testing.T) {
	c, _, diag := newTestCoordinator(t)

	c.Configure(NewConfig(narrationURL, "lava"))

	assert.True(t, c.Bound())
	assert.False(t, c.BackgroundBound())
	require.Len(t, diag.all(), 1)
	var resErr *ResolutionError
	require.ErrorAs(t, diag.all()[0], &resErr)
	assert.Equal(t, "lava", resErr.ID)

	play(t, c)
	assert.True(t, c.State().IsPlaying)
}

func TestOpenFailureLeavesHandleUnset(t *testing.T) {
	c, engine, diag := newTestCoordinator(t)
	engine.FailOpen(narrationURL, errors.New("bad url"))

	c.Configure(NewConfig(narrationURL, "rain"))

	assert.False(t, c.Bound())
	assert.True(t, c.BackgroundBound())
	require.Len(t, diag.all(), 1)
	play(t, c)
	assert.False(t, c.State().IsPlaying)
}

func TestPauseErrorIsContained(t *testing.T) {
	c, engine, diag := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)
	engine.Last(rainURL).SetPauseError(errors.New("boom"))

	c.Pause()

	assert.False(t, c.State().IsPlaying)
	var pauseErr *PauseError
	require.Len(t, diag.all(), 1)
	assert.ErrorAs(t, diag.all()[0], &pauseErr)
}

func TestEventsFromReplacedTrackIgnored(t *testing.T) {
	engine := &capturingEngine{Engine: mediatest.NewEngine(), listeners: make(map[string]media.Listener)}
	diag := &diagnostics{}
	c := New(engine,
		WithResolver(testResolver),
		WithLogger(log.New(io.Discard)),
		WithDiagnostics(diag.add),
	)
	defer c.Close()

	c.Configure(NewConfig(narrationURL, "rain"))
	staleNarration := engine.listener(narrationURL)
	staleBackground := engine.listener(rainURL)
	require.NotNil(t, staleNarration)
	require.NotNil(t, staleBackground)

	c.Configure(NewConfig("https://cdn.example.com/meditations/b.mp3", "ocean"))
	require.Empty(t, diag.all())

	// Слушатели прежних дорожек вызываются напрямую, минуя закрытые фейки
	staleNarration(media.Event{Kind: media.EventLoadedMetadata, Duration: time.Minute})
	staleNarration(media.Event{Kind: media.EventTimeUpdate, Position: 5 * time.Second, Duration: time.Minute})
	staleNarration(media.Event{Kind: media.EventEnded})
	staleNarration(media.Event{Kind: media.EventError, Err: assert.AnError})
	staleBackground(media.Event{Kind: media.EventError, Err: assert.AnError})

	assert.Equal(t, State{IsLoading: true}, c.State())
	assert.Empty(t, diag.all())

	// Текущая дорожка по-прежнему обновляет состояние
	current := engine.listener("https://cdn.example.com/meditations/b.mp3")
	current(media.Event{Kind: media.EventLoadedMetadata, Duration: 2 * time.Minute})
	assert.Equal(t, State{Duration: 2 * time.Minute}, c.State())
}

func TestPlayDoesNotWaitForBackground(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	background := engine.Last(rainURL)
	entered, release := background.HoldPlay()

	require.NoError(t, c.Play(context.Background()))
	assert.True(t, c.State().IsPlaying)
	assert.True(t, engine.Last(narrationURL).Playing())

	<-entered
	assert.False(t, background.Playing())

	release()
	c.starting.Wait()
	assert.True(t, background.Playing())
}

func TestPauseWhileBackgroundStarting(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	background := engine.Last(rainURL)
	entered, release := background.HoldPlay()

	require.NoError(t, c.Play(context.Background()))
	<-entered
	c.Pause()
	release()
	c.starting.Wait()

	// Запоздавший запуск фона снова ставится на паузу
	assert.Equal(t, 1, background.PlayCalls())
	assert.False(t, background.Playing())
	assert.False(t, c.State().IsPlaying)
}

func TestUpdatesKeepLatestSnapshot(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, ""))
	narration := engine.Last(narrationURL)

	for _, sec := range []int{1, 2, 3} {
		narration.Fire(media.Event{Kind: media.EventTimeUpdate, Position: time.Duration(sec) * time.Second})
	}

	state := <-c.Updates()
	assert.Equal(t, 3*time.Second, state.CurrentTime)
	select {
	case s := <-c.Updates():
		t.Fatalf("неожиданный снимок: %+v", s)
	default:
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, engine, _ := newTestCoordinator(t)
	c.Configure(NewConfig(narrationURL, "rain"))
	play(t, c)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	for _, tr := range engine.Tracks() {
		assert.True(t, tr.Closed(), tr.Locator)
	}
	assert.False(t, c.State().IsPlaying)

	for range c.Updates() {
	}

	c.Configure(NewConfig("https://cdn.example.com/meditations/b.mp3", "ocean"))
	play(t, c)
	assert.Len(t, engine.Tracks(), 2)
}
