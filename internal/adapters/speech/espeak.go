// Package speech provides the text-to-speech adapter.
// Clean Architecture: Adapter implementing ports.SpeechEngine over an
// espeak-ng subprocess.
package speech

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// baseWordsPerMinute is espeak-ng's rate at playback speed 1.0.
const baseWordsPerMinute = 175

// EspeakEngine implements ports.SpeechEngine by spawning an espeak-ng
// process per utterance. The engine is weakly observable: Speaking and
// Paused report process liveness, not synthesis progress, and the process
// can exit at any time without notice.
type EspeakEngine struct {
	binary string

	mu     sync.Mutex
	cmd    *exec.Cmd
	paused bool
}

// NewEspeakEngine locates the espeak-ng binary. Returns
// entities.ErrSpeechUnavailable when it is not installed; callers run
// without playback in that case.
func NewEspeakEngine(binary string) (*EspeakEngine, error) {
	if binary == "" {
		binary = "espeak-ng"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", entities.ErrSpeechUnavailable, binary)
	}
	return &EspeakEngine{binary: path}, nil
}

// Voices lists the voices espeak-ng reports.
func (e *EspeakEngine) Voices(ctx context.Context) ([]entities.VoiceInfo, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}
	return parseVoices(string(out)), nil
}

// parseVoices reads `espeak-ng --voices` output. Columns:
// Pty Language Age/Gender VoiceName File Other Languages.
func parseVoices(out string) []entities.VoiceInfo {
	var voices []entities.VoiceInfo
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, entities.VoiceInfo{
			Name:   fields[3],
			Locale: fields[1],
		})
	}
	return voices
}

// Speak cancels any current utterance and starts a new one. The spawned
// process runs until the utterance finishes or Cancel kills it.
func (e *EspeakEngine) Speak(ctx context.Context, text string, voice *entities.VoiceInfo, locale string, speed float64) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()

	rate := int(speed * baseWordsPerMinute)
	args := []string{"-s", fmt.Sprintf("%d", rate)}
	switch {
	case voice != nil && voice.Name != "":
		args = append(args, "-v", voice.Name)
	case locale != "":
		args = append(args, "-v", locale)
	}
	args = append(args, "--", text)

	cmd := exec.Command(e.binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", e.binary, err)
	}
	e.cmd = cmd
	e.paused = false

	go func() {
		if err := cmd.Wait(); err != nil && !strings.Contains(err.Error(), "killed") {
			log.Printf("[WARN] speech process exited: %v", err)
		}
		e.mu.Lock()
		if e.cmd == cmd {
			e.cmd = nil
			e.paused = false
		}
		e.mu.Unlock()
	}()
	return nil
}

// Pause suspends the current utterance with SIGSTOP. The process stays
// alive, so Speaking keeps reporting true.
func (e *EspeakEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil || e.paused {
		return nil
	}
	if err := e.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("pausing speech: %w", err)
	}
	e.paused = true
	return nil
}

// Resume continues a paused utterance with SIGCONT.
func (e *EspeakEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil || !e.paused {
		return nil
	}
	if err := e.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("resuming speech: %w", err)
	}
	e.paused = false
	return nil
}

// Cancel kills the current utterance, if any.
func (e *EspeakEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	return nil
}

func (e *EspeakEngine) stopLocked() {
	if e.cmd == nil || e.cmd.Process == nil {
		return
	}
	if e.paused {
		// Not needed for SIGKILL, which terminates a stopped process
		// directly; other termination signals stay pending until continued.
		_ = e.cmd.Process.Signal(syscall.SIGCONT)
	}
	_ = e.cmd.Process.Kill()
	e.cmd = nil
	e.paused = false
}

// Speaking reports whether an utterance process is alive, paused or not.
func (e *EspeakEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil
}

// Paused reports whether the current utterance is suspended.
func (e *EspeakEngine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil && e.paused
}
