// Package usecases - store.go is the sole reader/writer of durable reading state.
package usecases

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
)

// Storage keys. Books and scroll positions are keyed by document identity;
// settings and the last-opened name use fixed keys.
const (
	settingsKey     = "lectern:settings"
	lastOpenedKey   = "lectern:last_opened"
	bookKeyPrefix   = "book:"
	scrollKeyPrefix = "scroll:"
)

// SessionStore persists and restores per-document reading state over the
// key-value collaborator. Every operation is synchronous from the caller's
// point of view and never fails past this boundary: storage and parse
// failures are logged and treated as "absent" so a corrupt blob can never
// block startup.
type SessionStore struct {
	kv ports.KeyValueStore
}

// NewSessionStore creates a SessionStore over a key-value backend.
func NewSessionStore(kv ports.KeyValueStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// LoadSettings returns the stored display settings, or defaults when nothing
// is stored or the stored blob is unparseable.
func (s *SessionStore) LoadSettings(ctx context.Context) entities.DisplaySettings {
	raw, ok, err := s.kv.Get(ctx, settingsKey)
	if err != nil {
		log.Printf("[WARN] loading settings: %v", err)
	}
	if !ok || err != nil {
		return entities.DefaultDisplaySettings()
	}

	var settings entities.DisplaySettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Printf("[WARN] corrupt settings blob, using defaults: %v", err)
		return entities.DefaultDisplaySettings()
	}
	settings.Normalize()
	return settings
}

// SaveSettings persists display settings, normalizing the dark-mode
// foreground coupling first.
func (s *SessionStore) SaveSettings(ctx context.Context, settings entities.DisplaySettings) entities.DisplaySettings {
	settings.Normalize()
	raw, err := json.Marshal(settings)
	if err != nil {
		log.Printf("[WARN] encoding settings: %v", err)
		return settings
	}
	if err := s.kv.Set(ctx, settingsKey, string(raw)); err != nil {
		log.Printf("[WARN] saving settings: %v", err)
	}
	return settings
}

// SaveScrollPosition records the reading position for a document key.
func (s *SessionStore) SaveScrollPosition(ctx context.Context, documentKey string, position float64) {
	if documentKey == "" {
		return
	}
	if position < 0 {
		position = 0
	}
	value := strconv.FormatFloat(position, 'f', -1, 64)
	if err := s.kv.Set(ctx, scrollKeyPrefix+documentKey, value); err != nil {
		log.Printf("[WARN] saving scroll position for %s: %v", documentKey, err)
	}
}

// LoadScrollPosition returns the stored reading position for a document key.
func (s *SessionStore) LoadScrollPosition(ctx context.Context, documentKey string) (float64, bool) {
	if documentKey == "" {
		return 0, false
	}
	raw, ok, err := s.kv.Get(ctx, scrollKeyPrefix+documentKey)
	if err != nil {
		log.Printf("[WARN] loading scroll position for %s: %v", documentKey, err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	position, err := strconv.ParseFloat(raw, 64)
	if err != nil || position < 0 {
		return 0, false
	}
	return position, true
}

// SaveLastOpenedName records the name of the most recently opened document.
func (s *SessionStore) SaveLastOpenedName(ctx context.Context, name string) {
	if err := s.kv.Set(ctx, lastOpenedKey, name); err != nil {
		log.Printf("[WARN] saving last opened name: %v", err)
	}
}

// LoadLastOpenedName returns the most recently opened document name.
func (s *SessionStore) LoadLastOpenedName(ctx context.Context) (string, bool) {
	name, ok, err := s.kv.Get(ctx, lastOpenedKey)
	if err != nil {
		log.Printf("[WARN] loading last opened name: %v", err)
		return "", false
	}
	return name, ok
}

// SaveBook persists a book record keyed by its id.
func (s *SessionStore) SaveBook(ctx context.Context, book *entities.Book) {
	raw, err := json.Marshal(book)
	if err != nil {
		log.Printf("[WARN] encoding book %s: %v", book.ID, err)
		return
	}
	if err := s.kv.Set(ctx, bookKeyPrefix+book.ID, string(raw)); err != nil {
		log.Printf("[WARN] saving book %s: %v", book.ID, err)
	}
}

// LoadBook returns a stored book by id.
func (s *SessionStore) LoadBook(ctx context.Context, id string) (*entities.Book, bool) {
	raw, ok, err := s.kv.Get(ctx, bookKeyPrefix+id)
	if err != nil {
		log.Printf("[WARN] loading book %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var book entities.Book
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		log.Printf("[WARN] corrupt book record %s: %v", id, err)
		return nil, false
	}
	return &book, true
}

// DeleteBook removes a book record and its scroll position.
func (s *SessionStore) DeleteBook(ctx context.Context, id string) {
	if err := s.kv.Delete(ctx, bookKeyPrefix+id); err != nil {
		log.Printf("[WARN] deleting book %s: %v", id, err)
	}
	if err := s.kv.Delete(ctx, scrollKeyPrefix+id); err != nil {
		log.Printf("[WARN] deleting scroll position for %s: %v", id, err)
	}
}

// ListBooks returns every stored book, ordered by date added. Corrupt
// records are skipped with a warning rather than failing the listing.
func (s *SessionStore) ListBooks(ctx context.Context) []entities.Book {
	keys, err := s.kv.Keys(ctx, bookKeyPrefix)
	if err != nil {
		log.Printf("[WARN] listing books: %v", err)
		return nil
	}

	books := make([]entities.Book, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, bookKeyPrefix)
		if book, ok := s.LoadBook(ctx, id); ok {
			books = append(books, *book)
		}
	}

	sort.Slice(books, func(i, j int) bool {
		return books[i].DateAdded.Before(books[j].DateAdded)
	})
	return books
}
