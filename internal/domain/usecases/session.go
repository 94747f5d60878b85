// Package usecases - session.go is the composition root of a reading session.
package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// ReadingSession composes the extractor, text view manager, playback
// controller and session store behind one consistent, observable state. It
// holds the current book, current page, search term/results and the
// aggregate loading/error state surfaced to clients.
//
// The currently-open book is a read-mostly snapshot: AI requests work
// against the persisted record by id and the session refreshes its snapshot
// afterwards, so a result arriving after the user navigated away is still
// applied to the right book.
type ReadingSession struct {
	mu sync.Mutex

	extractor *Extractor
	textview  *TextViewManager
	playback  *PlaybackController
	store     *SessionStore

	book    *entities.Book
	page    int
	term    string
	results []entities.SearchResult
	cursor  *ResultCursor

	loading bool
	lastErr string
}

// NewReadingSession creates a session with injected components.
func NewReadingSession(extractor *Extractor, textview *TextViewManager, playback *PlaybackController, store *SessionStore) *ReadingSession {
	return &ReadingSession{
		extractor: extractor,
		textview:  textview,
		playback:  playback,
		store:     store,
		page:      1,
		cursor:    NewResultCursor(nil),
	}
}

// Playback exposes the playback controller for direct control surfaces.
func (s *ReadingSession) Playback() *PlaybackController {
	return s.playback
}

// Store exposes the session store for settings surfaces.
func (s *ReadingSession) Store() *SessionStore {
	return s.store
}

// AddDocument ingests raw document bytes: extract, create the book, persist,
// open. On any stage failure the attempt is terminal - the error is recorded
// for display, all partial state is discarded and no book is added.
func (s *ReadingSession) AddDocument(ctx context.Context, name string, data []byte) (*entities.Book, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	extraction, err := s.extractor.Extract(ctx, name, data)
	if err != nil {
		s.setError(err.Error())
		return nil, err
	}

	settings := s.store.LoadSettings(ctx)
	book := &entities.Book{
		ID:           uuid.NewString(),
		Name:         name,
		OriginalText: extraction.FullText,
		PageTexts:    extraction.PageTexts,
		DisplayMode:  entities.DisplayModeOriginal,
		FontFamily:   settings.FontFamily,
		FontSize:     entities.DefaultFontSize,
		DateAdded:    time.Now(),
	}
	s.store.SaveBook(ctx, book)
	s.store.SaveLastOpenedName(ctx, name)

	s.mu.Lock()
	s.install(book, 1)
	s.lastErr = ""
	s.mu.Unlock()
	return book, nil
}

// OpenBook makes a stored book the current one, restoring its last reading
// position. Opening a book resets playback: the displayed text changed.
func (s *ReadingSession) OpenBook(ctx context.Context, id string) (*entities.Book, error) {
	book, ok := s.store.LoadBook(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, id)
	}

	page := 1
	if stored, ok := s.store.LoadScrollPosition(ctx, book.ID); ok {
		page = clampPage(int(stored), book.PageCount())
	}
	s.store.SaveLastOpenedName(ctx, book.Name)

	s.mu.Lock()
	s.install(book, page)
	s.lastErr = ""
	s.mu.Unlock()
	return book, nil
}

// install replaces the current book and resets per-book session state.
// Callers hold s.mu.
func (s *ReadingSession) install(book *entities.Book, page int) {
	s.book = book
	s.page = clampPage(page, book.PageCount())
	s.term = ""
	s.results = nil
	s.cursor = NewResultCursor(nil)
	s.playback.Stop()
}

// ListBooks returns the stored library.
func (s *ReadingSession) ListBooks(ctx context.Context) []entities.Book {
	return s.store.ListBooks(ctx)
}

// DeleteBook removes a book from the library. Preloaded books are refused.
// Deleting the current book closes it.
func (s *ReadingSession) DeleteBook(ctx context.Context, id string) error {
	book, ok := s.store.LoadBook(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %s", entities.ErrBookNotFound, id)
	}
	if book.IsPreloaded {
		return entities.ErrPreloadedBook
	}
	s.store.DeleteBook(ctx, id)

	s.mu.Lock()
	if s.book != nil && s.book.ID == id {
		s.book = nil
		s.page = 1
		s.term = ""
		s.results = nil
		s.cursor = NewResultCursor(nil)
		s.playback.Stop()
	}
	s.mu.Unlock()
	return nil
}

// SetPage moves to a page, clamping silently to the valid range. Changing
// page re-renders already-extracted content only - no re-extraction, no
// search recomputation - but it does reset playback and persists the
// position.
func (s *ReadingSession) SetPage(ctx context.Context, page int) int {
	s.mu.Lock()
	if s.book == nil {
		s.mu.Unlock()
		return 0
	}
	s.page = clampPage(page, s.book.PageCount())
	current := s.page
	id := s.book.ID
	s.mu.Unlock()

	s.playback.Stop()
	s.store.SaveScrollPosition(ctx, id, float64(current))
	return current
}

// UpdateScroll records the in-page scroll position on the book record.
func (s *ReadingSession) UpdateScroll(ctx context.Context, position float64) error {
	if position < 0 {
		position = 0
	}

	s.mu.Lock()
	if s.book == nil {
		s.mu.Unlock()
		return entities.ErrNoDocument
	}
	s.book.LastReadScrollPosition = position
	book := *s.book
	s.mu.Unlock()

	s.store.SaveBook(ctx, &book)
	return nil
}

// SetFontSize sets the current book's font size, clamped to the allowed
// range, and persists it.
func (s *ReadingSession) SetFontSize(ctx context.Context, size int) error {
	s.mu.Lock()
	if s.book == nil {
		s.mu.Unlock()
		return entities.ErrNoDocument
	}
	s.book.FontSize = entities.ClampFontSize(size)
	book := *s.book
	s.mu.Unlock()

	s.store.SaveBook(ctx, &book)
	return nil
}

// SetFontFamily sets the current book's font family and persists it.
func (s *ReadingSession) SetFontFamily(ctx context.Context, family string) error {
	if family == "" {
		family = entities.DefaultFontFamily
	}

	s.mu.Lock()
	if s.book == nil {
		s.mu.Unlock()
		return entities.ErrNoDocument
	}
	s.book.FontFamily = family
	book := *s.book
	s.mu.Unlock()

	s.store.SaveBook(ctx, &book)
	return nil
}

// Search recomputes the result set for a term over the current book's pages
// and resets result navigation to "none selected".
func (s *ReadingSession) Search(term string) []entities.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.term = term
	if s.book == nil {
		s.results = nil
	} else {
		s.results = SearchPages(s.book.PageTexts, term)
	}
	s.cursor = NewResultCursor(s.results)
	return s.results
}

// NextResult advances to the next search hit, wrapping around, and moves the
// current page to it.
func (s *ReadingSession) NextResult(ctx context.Context) (entities.SearchResult, bool) {
	s.mu.Lock()
	result, ok := s.cursor.Next()
	s.mu.Unlock()
	if ok {
		s.SetPage(ctx, result.Page)
	}
	return result, ok
}

// PrevResult moves to the previous search hit, wrapping around, and moves
// the current page to it.
func (s *ReadingSession) PrevResult(ctx context.Context) (entities.SearchResult, bool) {
	s.mu.Lock()
	result, ok := s.cursor.Prev()
	s.mu.Unlock()
	if ok {
		s.SetPage(ctx, result.Page)
	}
	return result, ok
}

// RequestTranslation translates the current book. The request runs against
// the persisted record, so it completes even if the user navigates away
// before the result arrives.
func (s *ReadingSession) RequestTranslation(ctx context.Context) (string, error) {
	id, err := s.currentID()
	if err != nil {
		return "", err
	}
	translated, err := s.textview.RequestTranslation(ctx, id)
	s.refresh(ctx, id)
	return translated, err
}

// RequestSummary summarizes the current book.
func (s *ReadingSession) RequestSummary(ctx context.Context) (string, error) {
	id, err := s.currentID()
	if err != nil {
		return "", err
	}
	summary, err := s.textview.RequestSummary(ctx, id)
	s.refresh(ctx, id)
	return summary, err
}

// RequestKeywords extracts keywords for the current book.
func (s *ReadingSession) RequestKeywords(ctx context.Context) ([]string, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	keywords, err := s.textview.RequestKeywords(ctx, id)
	s.refresh(ctx, id)
	return keywords, err
}

// RequestChapterIndex detects the current book's chapter index.
func (s *ReadingSession) RequestChapterIndex(ctx context.Context) (*entities.ChapterIndex, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	index, err := s.textview.RequestChapterIndex(ctx, id)
	s.refresh(ctx, id)
	return index, err
}

// ToggleView flips the current book's display mode when the target text
// exists. The displayed text changes, so playback resets.
func (s *ReadingSession) ToggleView(ctx context.Context) (entities.DisplayMode, error) {
	id, err := s.currentID()
	if err != nil {
		return "", err
	}
	mode, err := s.textview.ToggleView(ctx, id)
	if err != nil {
		return mode, err
	}
	s.refresh(ctx, id)
	s.playback.Stop()
	return mode, nil
}

// PlayVisible speaks the text currently on screen: the current page in
// original mode, the translation in translated mode.
func (s *ReadingSession) PlayVisible(ctx context.Context) error {
	s.mu.Lock()
	if s.book == nil {
		s.mu.Unlock()
		return entities.ErrNoDocument
	}
	text := s.book.PageText(s.page)
	if s.book.DisplayMode == entities.DisplayModeTranslated && s.book.TranslatedText != "" {
		text = s.book.TranslatedText
	}
	s.mu.Unlock()

	return s.playback.Play(ctx, text)
}

// currentID returns the current book's id.
func (s *ReadingSession) currentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.book == nil {
		return "", entities.ErrNoDocument
	}
	return s.book.ID, nil
}

// refresh reloads the current book snapshot after a mutation that targeted
// it. A mutation against a book that is no longer current is left alone: it
// already landed on the persisted record.
func (s *ReadingSession) refresh(ctx context.Context, id string) {
	book, ok := s.store.LoadBook(ctx, id)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.book != nil && s.book.ID == id {
		s.book = book
		s.page = clampPage(s.page, book.PageCount())
	}
	s.mu.Unlock()
}

func (s *ReadingSession) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *ReadingSession) setError(message string) {
	s.mu.Lock()
	s.lastErr = message
	s.mu.Unlock()
}

// Snapshot is the observable session state.
type Snapshot struct {
	Book      *entities.Book          `json:"book,omitempty"`
	Page      int                     `json:"page"`
	PageCount int                     `json:"page_count"`
	PageText  string                  `json:"page_text,omitempty"`
	Term      string                  `json:"term,omitempty"`
	Results   []entities.SearchResult `json:"results,omitempty"`
	Loading   bool                    `json:"loading"`
	Error     string                  `json:"error,omitempty"`
}

// State returns a consistent snapshot of the session.
func (s *ReadingSession) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		Page:    s.page,
		Term:    s.term,
		Results: s.results,
		Loading: s.loading,
		Error:   s.lastErr,
	}
	if s.book != nil {
		book := *s.book
		snapshot.Book = &book
		snapshot.PageCount = book.PageCount()
		snapshot.PageText = book.PageText(s.page)
		if book.DisplayMode == entities.DisplayModeTranslated && book.TranslatedText != "" {
			snapshot.PageText = book.TranslatedText
		}
	}
	return snapshot
}

// clampPage bounds a 1-indexed page to [1, pageCount].
func clampPage(page, pageCount int) int {
	if pageCount < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > pageCount {
		return pageCount
	}
	return page
}
