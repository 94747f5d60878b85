package entities

import "errors"

// Domain error taxonomy. Adapters and usecases wrap these with %w so callers
// can classify failures with errors.Is.
var (
	// ErrExtraction marks an unparseable or corrupt source document.
	// An extraction failure aborts the whole ingestion; no partial document
	// is ever created.
	ErrExtraction = errors.New("document extraction failed")

	// ErrUnsupportedFormat marks a document whose file type has no
	// registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoTranslation is returned when the caller tries to switch to a
	// text variant that was never populated. Recoverable: the caller should
	// request a translation first.
	ErrNoTranslation = errors.New("no translation available")

	// ErrBookNotFound marks an unknown book id.
	ErrBookNotFound = errors.New("book not found")

	// ErrPreloadedBook marks a mutation refused on a preloaded, read-only
	// book (e.g. delete).
	ErrPreloadedBook = errors.New("preloaded books cannot be deleted")

	// ErrNoDocument marks a session operation that requires an open book.
	ErrNoDocument = errors.New("no document is open")

	// ErrSpeechUnavailable marks a host without a usable speech engine.
	// Playback controls become inert rather than failing per interaction.
	ErrSpeechUnavailable = errors.New("speech engine unavailable")
)
