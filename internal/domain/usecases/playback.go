// Package usecases - playback.go drives speech playback over the external engine.
package usecases

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
)

// DefaultReconcileInterval is how often the controller polls the engine's
// observable flags when no interval is configured.
const DefaultReconcileInterval = 500 * time.Millisecond

// PlaybackController is a state machine over {Idle, Playing, Paused} wrapping
// the external speech engine. The engine's true speaking/paused flags can
// diverge from the controller's state (engine bugs, externally triggered
// cancellation), so a periodic reconciliation step corrects the controller
// against the engine's observable flags. Reconciliation is a correctness
// mechanism, not a detail: without it the controller would report Playing
// forever after the engine silently stops.
//
// A nil engine means the host has no speech support; every control becomes an
// inert no-op instead of erroring per interaction.
type PlaybackController struct {
	mu sync.Mutex

	engine       ports.SpeechEngine
	state        entities.PlaybackState
	speed        float64
	targetLocale string
	interval     time.Duration

	voices   []entities.VoiceInfo
	selected *entities.VoiceInfo

	// lastTransition guards reconciliation against racing an explicit user
	// transition whose effect the engine has not surfaced yet.
	lastTransition time.Time
}

// NewPlaybackController creates a controller for the given engine. A nil
// engine disables playback. targetLocale drives voice auto-selection.
func NewPlaybackController(engine ports.SpeechEngine, targetLocale string, interval time.Duration) *PlaybackController {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &PlaybackController{
		engine:       engine,
		state:        entities.PlaybackIdle,
		speed:        entities.DefaultPlaybackSpeed,
		targetLocale: targetLocale,
		interval:     interval,
	}
}

// Supported reports whether the host has a usable speech engine.
func (c *PlaybackController) Supported() bool {
	return c.engine != nil
}

// Start launches voice discovery and the reconciliation loop. Both stop when
// ctx is cancelled. Voice discovery runs asynchronously because the engine
// may resolve its voice list after a real delay, or never on some hosts.
func (c *PlaybackController) Start(ctx context.Context) {
	if c.engine == nil {
		return
	}

	go func() {
		voices, err := c.engine.Voices(ctx)
		if err != nil {
			log.Printf("[WARN] listing voices: %v", err)
			return
		}
		c.applyVoices(voices)
	}()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.reconcile()
			}
		}
	}()
}

// applyVoices records the discovered voice list and auto-selects a voice:
// the first one matching the target locale, else the first available. An
// empty list leaves the selection nil and Speak degrades to a locale hint.
func (c *PlaybackController) applyVoices(voices []entities.VoiceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.voices = voices
	if len(voices) == 0 {
		return
	}

	for i := range voices {
		if strings.HasPrefix(voices[i].Locale, c.targetLocale) {
			c.selected = &voices[i]
			return
		}
	}
	c.selected = &voices[0]
}

// Play starts speaking text. Empty or whitespace-only text is ignored and
// the state stays where it was. Starting playback for new text implicitly
// cancels any prior utterance; callers never need to stop first.
func (c *PlaybackController) Play(ctx context.Context, text string) error {
	if c.engine == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.Cancel(); err != nil {
		log.Printf("[WARN] cancelling prior utterance: %v", err)
	}
	if err := c.engine.Speak(ctx, text, c.selected, c.targetLocale, c.speed); err != nil {
		c.state = entities.PlaybackIdle
		c.lastTransition = time.Now()
		return err
	}

	c.state = entities.PlaybackPlaying
	c.lastTransition = time.Now()
	return nil
}

// Pause suspends playback. Valid only from Playing; anywhere else it is a
// no-op. Paused means "not actively outputting sound by intent", which is
// tracked here and deliberately not inferred from the engine's own paused
// flag.
func (c *PlaybackController) Pause() {
	if c.engine == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != entities.PlaybackPlaying {
		return
	}
	if err := c.engine.Pause(); err != nil {
		log.Printf("[WARN] pausing playback: %v", err)
	}
	c.state = entities.PlaybackPaused
	c.lastTransition = time.Now()
}

// Resume continues playback. Valid only from Paused.
func (c *PlaybackController) Resume() {
	if c.engine == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != entities.PlaybackPaused {
		return
	}
	if err := c.engine.Resume(); err != nil {
		log.Printf("[WARN] resuming playback: %v", err)
	}
	c.state = entities.PlaybackPlaying
	c.lastTransition = time.Now()
}

// Stop cancels playback from Playing or Paused and always invokes the
// engine's cancel on those transitions.
func (c *PlaybackController) Stop() {
	if c.engine == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == entities.PlaybackIdle {
		return
	}
	if err := c.engine.Cancel(); err != nil {
		log.Printf("[WARN] cancelling playback: %v", err)
	}
	c.state = entities.PlaybackIdle
	c.lastTransition = time.Now()
}

// SetSpeed updates the playback speed, clamped to the allowed range. Takes
// effect on the next Play.
func (c *PlaybackController) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = entities.ClampPlaybackSpeed(speed)
}

// SelectVoice picks a discovered voice by name. Unknown names are ignored.
func (c *PlaybackController) SelectVoice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.voices {
		if c.voices[i].Name == name {
			c.selected = &c.voices[i]
			return
		}
	}
}

// State returns the controller-tracked playback state.
func (c *PlaybackController) State() entities.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is a snapshot of the playback session for display.
type Status struct {
	State     entities.PlaybackState `json:"state"`
	Speed     float64                `json:"speed"`
	Voices    []entities.VoiceInfo   `json:"voices"`
	Voice     string                 `json:"voice,omitempty"`
	Supported bool                   `json:"supported"`
}

// Snapshot returns the current playback status.
func (c *PlaybackController) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		State:     c.state,
		Speed:     c.speed,
		Voices:    c.voices,
		Supported: c.engine != nil,
	}
	if c.selected != nil {
		status.Voice = c.selected.Name
	}
	return status
}

// reconcile corrects the controller state against the engine's observable
// flags: Playing while the engine is silent becomes Idle (natural end or
// external cancellation), Idle while the engine is speaking becomes Playing.
// Paused is never touched - pausing is an intent this controller owns - and a
// cycle that could race a transition issued within the last interval is
// skipped so reconciliation never fights a pause or play the engine has not
// caught up with yet.
func (c *PlaybackController) reconcile() {
	if c.engine == nil {
		return
	}

	speaking := c.engine.Speaking()
	paused := c.engine.Paused()

	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastTransition) < c.interval {
		return
	}

	switch {
	case c.state == entities.PlaybackPlaying && !speaking && !paused:
		c.state = entities.PlaybackIdle
	case c.state == entities.PlaybackIdle && speaking && !paused:
		c.state = entities.PlaybackPlaying
	}
}
