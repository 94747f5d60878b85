package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// newTestSession wires a session over in-memory fakes. The text source
// serves one page per line of the uploaded bytes.
func newTestSession(ai *mockAI, pages []string) (*ReadingSession, *SessionStore) {
	store := NewSessionStore(newFakeKV())
	ext := NewExtractor()
	ext.Register(&stubSource{exts: []string{".txt"}, pages: pages})
	textview := NewTextViewManager(ai, store)
	playback := NewPlaybackController(nil, "ar", 0)
	return NewReadingSession(ext, textview, playback, store), store
}

func TestSession_AddDocument(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"page one", "page two"})
	ctx := context.Background()

	book, err := session.AddDocument(ctx, "history.txt", []byte("raw"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if book.ID == "" {
		t.Error("book should get an id")
	}
	if book.OriginalText != "page one\n\npage two" {
		t.Errorf("unexpected full text: %q", book.OriginalText)
	}
	if book.DisplayMode != entities.DisplayModeOriginal {
		t.Errorf("new books open in the original view, got %s", book.DisplayMode)
	}

	if _, ok := store.LoadBook(ctx, book.ID); !ok {
		t.Error("added book should be persisted")
	}
	if name, _ := store.LoadLastOpenedName(ctx); name != "history.txt" {
		t.Errorf("expected last opened name, got %q", name)
	}

	state := session.State()
	if state.Book == nil || state.Book.ID != book.ID {
		t.Error("added book should become current")
	}
	if state.Page != 1 || state.PageText != "page one" {
		t.Errorf("expected page 1 text, got page %d %q", state.Page, state.PageText)
	}
}

func TestSession_AddDocumentFailureIsTerminal(t *testing.T) {
	session, store := newTestSession(&mockAI{}, nil)
	ctx := context.Background()

	_, err := session.AddDocument(ctx, "photo.png", []byte("x"))
	if !errors.Is(err, entities.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	state := session.State()
	if state.Book != nil {
		t.Error("a failed ingest must not install a book")
	}
	if state.Error == "" {
		t.Error("the failure should be recorded for display")
	}
	if books := store.ListBooks(ctx); len(books) != 0 {
		t.Errorf("a failed ingest must not persist anything, got %d books", len(books))
	}
}

func TestSession_SetPageClamps(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, []string{"a", "b", "c"})
	ctx := context.Background()
	session.AddDocument(ctx, "b.txt", []byte("x"))

	if got := session.SetPage(ctx, 99); got != 3 {
		t.Errorf("expected clamp to 3, got %d", got)
	}
	if got := session.SetPage(ctx, -5); got != 1 {
		t.Errorf("expected clamp to 1, got %d", got)
	}
	if got := session.SetPage(ctx, 2); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestSession_SearchNavigation(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, []string{"A A", "B", "A"})
	ctx := context.Background()
	session.AddDocument(ctx, "b.txt", []byte("x"))

	results := session.Search("A")
	if len(results) != 2 {
		t.Fatalf("expected 2 result pages, got %d", len(results))
	}

	first, ok := session.NextResult(ctx)
	if !ok || first.Page != 1 {
		t.Errorf("expected first hit on page 1, got %+v", first)
	}
	second, _ := session.NextResult(ctx)
	if second.Page != 3 {
		t.Errorf("expected second hit on page 3, got %+v", second)
	}
	if session.State().Page != 3 {
		t.Errorf("navigation should move the current page, got %d", session.State().Page)
	}
	wrapped, _ := session.NextResult(ctx)
	if wrapped.Page != 1 {
		t.Errorf("expected wrap to page 1, got %+v", wrapped)
	}

	// A new search resets navigation.
	session.Search("B")
	hit, _ := session.NextResult(ctx)
	if hit.Page != 2 {
		t.Errorf("expected page 2, got %+v", hit)
	}
}

func TestSession_OpenBookRestoresPosition(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"a", "b", "c"})
	ctx := context.Background()

	book, _ := session.AddDocument(ctx, "b.txt", []byte("x"))
	session.SetPage(ctx, 3)

	// Reopen: the saved position comes back, clamped to the page range.
	reopened, err := session.OpenBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if reopened.ID != book.ID {
		t.Error("unexpected book")
	}
	if session.State().Page != 3 {
		t.Errorf("expected restored page 3, got %d", session.State().Page)
	}

	store.SaveScrollPosition(ctx, book.ID, 99)
	session.OpenBook(ctx, book.ID)
	if session.State().Page != 3 {
		t.Errorf("restored position should clamp to the page count, got %d", session.State().Page)
	}
}

func TestSession_OpenMissingBook(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, nil)

	_, err := session.OpenBook(context.Background(), "ghost")
	if !errors.Is(err, entities.ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
}

func TestSession_DeleteBook(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"a"})
	ctx := context.Background()

	book, _ := session.AddDocument(ctx, "b.txt", []byte("x"))
	if err := session.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := store.LoadBook(ctx, book.ID); ok {
		t.Error("book should be gone")
	}
	if session.State().Book != nil {
		t.Error("deleting the current book should close it")
	}
}

func TestSession_DeletePreloadedBookRefused(t *testing.T) {
	session, store := newTestSession(&mockAI{}, nil)
	ctx := context.Background()

	SeedPreloadedBooks(ctx, store)
	err := session.DeleteBook(ctx, PreloadedQuranID)
	if !errors.Is(err, entities.ErrPreloadedBook) {
		t.Errorf("expected ErrPreloadedBook, got %v", err)
	}
	if _, ok := store.LoadBook(ctx, PreloadedQuranID); !ok {
		t.Error("the preloaded book must survive")
	}
}

func TestSeedPreloadedBooks_Idempotent(t *testing.T) {
	store := NewSessionStore(newFakeKV())
	ctx := context.Background()

	SeedPreloadedBooks(ctx, store)
	books := store.ListBooks(ctx)
	if len(books) != 2 {
		t.Fatalf("expected 2 preloaded books, got %d", len(books))
	}
	for _, book := range books {
		if !book.IsPreloaded {
			t.Errorf("book %s should be marked preloaded", book.ID)
		}
		if book.PageCount() == 0 {
			t.Errorf("book %s should have pages", book.ID)
		}
	}

	// Mutate one record, reseed: existing records are left alone.
	quran, _ := store.LoadBook(ctx, PreloadedQuranID)
	quran.FontSize = 24
	store.SaveBook(ctx, quran)

	SeedPreloadedBooks(ctx, store)
	quran, _ = store.LoadBook(ctx, PreloadedQuranID)
	if quran.FontSize != 24 {
		t.Error("reseeding must not overwrite existing records")
	}
	if len(store.ListBooks(ctx)) != 2 {
		t.Error("reseeding must not duplicate books")
	}
}

func TestSession_FontSettings(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"a"})
	ctx := context.Background()

	if err := session.SetFontSize(ctx, 40); !errors.Is(err, entities.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument with no book, got %v", err)
	}

	book, _ := session.AddDocument(ctx, "b.txt", []byte("x"))
	if err := session.SetFontSize(ctx, 40); err != nil {
		t.Fatalf("set font size failed: %v", err)
	}
	stored, _ := store.LoadBook(ctx, book.ID)
	if stored.FontSize != entities.MaxFontSize {
		t.Errorf("font size should be clamped and persisted, got %d", stored.FontSize)
	}

	if err := session.SetFontFamily(ctx, "font-amiri"); err != nil {
		t.Fatalf("set font family failed: %v", err)
	}
	stored, _ = store.LoadBook(ctx, book.ID)
	if stored.FontFamily != "font-amiri" {
		t.Errorf("font family should be persisted, got %s", stored.FontFamily)
	}
}

func TestSession_UpdateScroll(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"a"})
	ctx := context.Background()

	book, _ := session.AddDocument(ctx, "b.txt", []byte("x"))
	if err := session.UpdateScroll(ctx, 120.5); err != nil {
		t.Fatalf("update scroll failed: %v", err)
	}
	stored, _ := store.LoadBook(ctx, book.ID)
	if stored.LastReadScrollPosition != 120.5 {
		t.Errorf("expected 120.5, got %f", stored.LastReadScrollPosition)
	}
}

func TestSession_TranslationRefreshesSnapshot(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, []string{"hello"})
	ctx := context.Background()

	session.AddDocument(ctx, "b.txt", []byte("x"))
	translated, err := session.RequestTranslation(ctx)
	if err != nil {
		t.Fatalf("translation failed: %v", err)
	}

	state := session.State()
	if state.Book.TranslatedText != translated {
		t.Error("the session snapshot should pick up the translation")
	}
	if state.Book.DisplayMode != entities.DisplayModeTranslated {
		t.Errorf("expected translated view, got %s", state.Book.DisplayMode)
	}
	if state.PageText != translated {
		t.Errorf("translated view should display the translation, got %q", state.PageText)
	}
}

func TestSession_ToggleWithoutTranslation(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, []string{"hello"})
	ctx := context.Background()
	session.AddDocument(ctx, "b.txt", []byte("x"))

	_, err := session.ToggleView(ctx)
	if !errors.Is(err, entities.ErrNoTranslation) {
		t.Errorf("expected ErrNoTranslation, got %v", err)
	}
}

func TestSession_RequestsWithoutDocument(t *testing.T) {
	session, _ := newTestSession(&mockAI{}, nil)
	ctx := context.Background()

	if _, err := session.RequestTranslation(ctx); !errors.Is(err, entities.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
	if _, err := session.RequestSummary(ctx); !errors.Is(err, entities.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
	if _, err := session.RequestKeywords(ctx); !errors.Is(err, entities.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
	if err := session.PlayVisible(ctx); !errors.Is(err, entities.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
}

func TestSession_ListBooksOrdered(t *testing.T) {
	session, store := newTestSession(&mockAI{}, []string{"a"})
	ctx := context.Background()

	store.SaveBook(ctx, &entities.Book{ID: "old", Name: "old", DateAdded: time.Now().Add(-time.Hour)})
	session.AddDocument(ctx, "new.txt", []byte("x"))

	books := session.ListBooks(ctx)
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if books[0].ID != "old" {
		t.Errorf("expected oldest first, got %s", books[0].ID)
	}
}
