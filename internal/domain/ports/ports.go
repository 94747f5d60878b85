// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// DocumentHandle is an opened document ready for per-page text retrieval.
// Pages are 1-indexed. Close releases any underlying resources.
type DocumentHandle interface {
	PageCount() int
	PageText(ctx context.Context, page int) (string, error)
	Close() error
}

// DocumentSource parses raw document bytes into a page-addressable handle.
// The core depends only on this narrow contract, never on rendering.
type DocumentSource interface {
	// Load opens the document. Fails when the source cannot be parsed.
	Load(ctx context.Context, name string, data []byte) (DocumentHandle, error)

	// SupportedExtensions returns file extensions this source handles
	// (lowercase, with leading dot).
	SupportedExtensions() []string
}

// AIService is the generative AI collaborator. Implementations may return a
// human-readable degraded value with a nil error when the backend is
// unconfigured; transport failures are returned as errors and absorbed into
// displayable strings by the caller. Configured lets callers tell placeholder
// values apart from real results so they are never cached.
type AIService interface {
	// Configured reports whether the backend can serve real requests.
	Configured() bool

	// Translate renders text into the application's target language.
	Translate(ctx context.Context, text string) (string, error)

	// Summarize produces a concise summary of text.
	Summarize(ctx context.Context, text string) (string, error)

	// Keywords extracts the main keywords of text, in order.
	Keywords(ctx context.Context, text string) ([]string, error)

	// ChapterIndex asks the model for a JSON chapter listing of text and
	// returns the raw response. Parsing is deliberately left to the caller:
	// generative output is untrusted and parsed defensively.
	ChapterIndex(ctx context.Context, text string) (string, error)

	// Research answers a free-form research query with cited sources.
	Research(ctx context.Context, query string) (*entities.ResearchResult, error)
}

// SpeechEngine is the external text-to-speech collaborator. Its true state is
// only weakly observable through the Speaking/Paused flags, which may lag or
// drift; the playback controller reconciles against them.
type SpeechEngine interface {
	// Voices lists available voices. May be slow or empty on some hosts;
	// callers query it asynchronously.
	Voices(ctx context.Context) ([]entities.VoiceInfo, error)

	// Speak starts speaking text, cancelling any prior utterance. When
	// voice is nil the locale is used as a hint instead.
	Speak(ctx context.Context, text string, voice *entities.VoiceInfo, locale string, speed float64) error

	Pause() error
	Resume() error
	Cancel() error

	// Speaking reports whether an utterance is active (including paused).
	Speaking() bool

	// Paused reports the engine's own paused flag.
	Paused() bool
}

// KeyValueStore is the durable persistence collaborator: JSON blobs keyed by
// document identity plus a few fixed keys. No further schema.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key, value string) error

	Delete(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// LibraryWatcher monitors the library directory for dropped documents.
type LibraryWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan LibraryEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// LibraryEvent represents a file system change in the library directory.
type LibraryEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
