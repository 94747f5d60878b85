package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// fakeEngine is a SpeechEngine whose observable flags the test controls
// directly, simulating drift between the engine and the controller.
type fakeEngine struct {
	mu       sync.Mutex
	speaking bool
	paused   bool

	speakCalls  int
	cancelCalls int
	pauseCalls  int
	resumeCalls int

	lastText  string
	lastSpeed float64
	voices    []entities.VoiceInfo
}

func (e *fakeEngine) Voices(ctx context.Context) ([]entities.VoiceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices, nil
}

func (e *fakeEngine) Speak(ctx context.Context, text string, voice *entities.VoiceInfo, locale string, speed float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakCalls++
	e.lastText = text
	e.lastSpeed = speed
	e.speaking = true
	e.paused = false
	return nil
}

func (e *fakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCalls++
	e.paused = true
	return nil
}

func (e *fakeEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeCalls++
	e.paused = false
	return nil
}

func (e *fakeEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCalls++
	e.speaking = false
	e.paused = false
	return nil
}

func (e *fakeEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

func (e *fakeEngine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// silence simulates the engine stopping on its own (utterance finished or
// externally cancelled) without telling the controller.
func (e *fakeEngine) silence() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = false
	e.paused = false
}

// newTestController uses a nanosecond interval so reconcile never skips a
// cycle for racing a recent transition.
func newTestController(engine *fakeEngine) *PlaybackController {
	return NewPlaybackController(engine, "ar", time.Nanosecond)
}

func TestPlayback_PlayEmptyTextIsNoOp(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	if err := c.Play(context.Background(), "   "); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if c.State() != entities.PlaybackIdle {
		t.Errorf("empty text should leave the state at Idle, got %s", c.State())
	}
	if engine.speakCalls != 0 {
		t.Errorf("empty text must not reach the engine, got %d calls", engine.speakCalls)
	}
}

func TestPlayback_PlayCancelsPriorUtterance(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)
	ctx := context.Background()

	if err := c.Play(ctx, "first"); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if err := c.Play(ctx, "second"); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if c.State() != entities.PlaybackPlaying {
		t.Errorf("expected Playing, got %s", c.State())
	}
	if engine.cancelCalls != 2 {
		t.Errorf("each play should cancel first, got %d cancels", engine.cancelCalls)
	}
	if engine.lastText != "second" {
		t.Errorf("expected latest text, got %q", engine.lastText)
	}
}

func TestPlayback_PauseOnlyFromPlaying(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.Pause()
	if c.State() != entities.PlaybackIdle {
		t.Errorf("pause from Idle should be a no-op, got %s", c.State())
	}
	if engine.pauseCalls != 0 {
		t.Error("pause from Idle must not reach the engine")
	}

	c.Play(context.Background(), "text")
	c.Pause()
	if c.State() != entities.PlaybackPaused {
		t.Errorf("expected Paused, got %s", c.State())
	}
}

func TestPlayback_ResumeOnlyFromPaused(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.Resume()
	if c.State() != entities.PlaybackIdle || engine.resumeCalls != 0 {
		t.Error("resume from Idle should be a no-op")
	}

	c.Play(context.Background(), "text")
	c.Pause()
	c.Resume()
	if c.State() != entities.PlaybackPlaying {
		t.Errorf("expected Playing after resume, got %s", c.State())
	}
}

func TestPlayback_StopAlwaysCancels(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)
	ctx := context.Background()

	c.Play(ctx, "text")
	cancelsBefore := engine.cancelCalls
	c.Stop()
	if c.State() != entities.PlaybackIdle {
		t.Errorf("expected Idle, got %s", c.State())
	}
	if engine.cancelCalls != cancelsBefore+1 {
		t.Error("stop from Playing must cancel the engine")
	}

	// Stop from Paused also cancels.
	c.Play(ctx, "text")
	c.Pause()
	cancelsBefore = engine.cancelCalls
	c.Stop()
	if engine.cancelCalls != cancelsBefore+1 {
		t.Error("stop from Paused must cancel the engine")
	}
}

func TestPlayback_SetSpeedClamped(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.SetSpeed(9.0)
	c.Play(context.Background(), "text")
	if engine.lastSpeed != entities.MaxPlaybackSpeed {
		t.Errorf("expected clamped speed %f, got %f", entities.MaxPlaybackSpeed, engine.lastSpeed)
	}
}

func TestPlayback_ReconcileSilentEngine(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.Play(context.Background(), "text")
	engine.silence()
	time.Sleep(time.Millisecond)
	c.reconcile()

	if c.State() != entities.PlaybackIdle {
		t.Errorf("Playing over a silent engine should reconcile to Idle, got %s", c.State())
	}
}

func TestPlayback_ReconcileExternalSpeech(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	engine.mu.Lock()
	engine.speaking = true
	engine.mu.Unlock()
	time.Sleep(time.Millisecond)
	c.reconcile()

	if c.State() != entities.PlaybackPlaying {
		t.Errorf("Idle over a speaking engine should reconcile to Playing, got %s", c.State())
	}
}

func TestPlayback_ReconcileNeverTouchesPaused(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.Play(context.Background(), "text")
	c.Pause()
	engine.silence()
	time.Sleep(time.Millisecond)
	c.reconcile()

	if c.State() != entities.PlaybackPaused {
		t.Errorf("reconciliation must not override a paused intent, got %s", c.State())
	}
}

func TestPlayback_ReconcileSkipsRecentTransition(t *testing.T) {
	engine := &fakeEngine{}
	c := NewPlaybackController(engine, "ar", time.Minute)

	c.Play(context.Background(), "text")
	engine.silence()
	c.reconcile()

	// The transition happened within the interval; reconcile must wait.
	if c.State() != entities.PlaybackPlaying {
		t.Errorf("reconcile within the interval of a transition should skip, got %s", c.State())
	}
}

func TestPlayback_VoiceAutoSelection(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)

	c.applyVoices([]entities.VoiceInfo{
		{Name: "english", Locale: "en-US"},
		{Name: "arabic", Locale: "ar-SA"},
	})

	status := c.Snapshot()
	if status.Voice != "arabic" {
		t.Errorf("expected the target-locale voice, got %q", status.Voice)
	}

	// No locale match falls back to the first voice.
	c2 := newTestController(engine)
	c2.applyVoices([]entities.VoiceInfo{
		{Name: "french", Locale: "fr-FR"},
		{Name: "german", Locale: "de-DE"},
	})
	if got := c2.Snapshot().Voice; got != "french" {
		t.Errorf("expected first voice fallback, got %q", got)
	}
}

func TestPlayback_SelectVoiceUnknownIgnored(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine)
	c.applyVoices([]entities.VoiceInfo{{Name: "arabic", Locale: "ar"}})

	c.SelectVoice("nonexistent")
	if got := c.Snapshot().Voice; got != "arabic" {
		t.Errorf("unknown voice names must be ignored, got %q", got)
	}
}

func TestPlayback_NilEngineIsInert(t *testing.T) {
	c := NewPlaybackController(nil, "ar", 0)

	if c.Supported() {
		t.Error("nil engine should report unsupported")
	}
	if err := c.Play(context.Background(), "text"); err != nil {
		t.Errorf("play on nil engine should be a no-op, got %v", err)
	}
	c.Pause()
	c.Resume()
	c.Stop()
	if c.State() != entities.PlaybackIdle {
		t.Errorf("nil engine should stay Idle, got %s", c.State())
	}
}
