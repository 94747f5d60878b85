// Lectern is a headless reading session engine: document extraction, AI
// translation and summarization, cross-page search and speech playback
// behind a JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hmaged/lectern/internal/adapters/ai"
	"github.com/hmaged/lectern/internal/adapters/extractor"
	"github.com/hmaged/lectern/internal/adapters/filewatcher"
	"github.com/hmaged/lectern/internal/adapters/loader"
	"github.com/hmaged/lectern/internal/adapters/speech"
	"github.com/hmaged/lectern/internal/adapters/storage"
	"github.com/hmaged/lectern/internal/config"
	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
	"github.com/hmaged/lectern/internal/domain/usecases"
	httpserver "github.com/hmaged/lectern/internal/infrastructure/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run() error {
	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.NewSQLiteStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer kv.Close()
	store := usecases.NewSessionStore(kv)

	ext := usecases.NewExtractor()
	ext.Register(extractor.NewPDFSource())
	ext.Register(extractor.NewEpubSource())
	ext.Register(extractor.NewTextSource())

	gemini := ai.NewGeminiClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if !gemini.Configured() {
		log.Printf("[WARN] GEMINI_API_KEY not set; AI features run degraded")
	}

	// Missing speech support degrades playback to a no-op instead of
	// failing startup.
	var engine ports.SpeechEngine
	if espeak, err := speech.NewEspeakEngine(cfg.Speech.Binary); err != nil {
		if errors.Is(err, entities.ErrSpeechUnavailable) {
			log.Printf("[WARN] %v; playback disabled", err)
		} else {
			return fmt.Errorf("initializing speech: %w", err)
		}
	} else {
		engine = espeak
	}
	playback := usecases.NewPlaybackController(engine, cfg.Speech.TargetLocale, cfg.Speech.ReconcileInterval)
	playback.Start(ctx)

	textview := usecases.NewTextViewManager(gemini, store)
	session := usecases.NewReadingSession(ext, textview, playback, store)

	if cfg.Library.SeedBooks {
		usecases.SeedPreloadedBooks(ctx, store)
	}

	if cfg.Library.WatchEnabled {
		scanLibrary(ctx, cfg.Library.Dir, ext, session)
		if err := watchLibrary(ctx, cfg.Library.Dir, ext, session); err != nil {
			log.Printf("[WARN] library watch disabled: %v", err)
		}
	}

	restoreLastOpened(ctx, store, session)

	server := httpserver.NewServer(session, gemini, fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port))
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("[INFO] Lectern stopped")
	return nil
}

// restoreLastOpened reopens the document the previous session ended on.
func restoreLastOpened(ctx context.Context, store *usecases.SessionStore, session *usecases.ReadingSession) {
	name, ok := store.LoadLastOpenedName(ctx)
	if !ok {
		return
	}
	for _, book := range session.ListBooks(ctx) {
		if book.Name == name {
			if _, err := session.OpenBook(ctx, book.ID); err == nil {
				log.Printf("[INFO] restored last opened document %q", name)
			}
			return
		}
	}
}

// scanLibrary ingests documents that landed in the library while the engine
// was offline. Names already in the library are skipped.
func scanLibrary(ctx context.Context, dir string, ext *usecases.Extractor, session *usecases.ReadingSession) {
	scanner := loader.NewLibraryScanner(ext.SupportedExtensions())
	files, err := scanner.Scan(ctx, dir)
	if err != nil {
		log.Printf("[WARN] scanning library: %v", err)
		return
	}

	known := make(map[string]bool)
	for _, book := range session.ListBooks(ctx) {
		known[book.Name] = true
	}

	for _, file := range files {
		if known[file.Name] {
			continue
		}
		data, err := os.ReadFile(file.Path)
		if err != nil {
			log.Printf("[WARN] reading %s: %v", file.Path, err)
			continue
		}
		if _, err := session.AddDocument(ctx, file.Name, data); err != nil {
			log.Printf("[WARN] ingesting %s: %v", file.Name, err)
			continue
		}
		log.Printf("[INFO] ingested %s from library scan", file.Name)
	}
}

// watchLibrary ingests documents dropped into the library directory.
func watchLibrary(ctx context.Context, dir string, ext *usecases.Extractor, session *usecases.ReadingSession) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating library directory: %w", err)
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(ext.SupportedExtensions())
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Stop()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	log.Printf("[INFO] watching library directory %s", dir)

	go func() {
		defer watcher.Stop()
		for event := range events {
			if event.Operation != ports.FileCreated && event.Operation != ports.FileModified {
				continue
			}
			data, err := os.ReadFile(event.Path)
			if err != nil {
				log.Printf("[WARN] reading %s: %v", event.Path, err)
				continue
			}
			name := filepath.Base(event.Path)
			if _, err := session.AddDocument(ctx, name, data); err != nil {
				log.Printf("[WARN] ingesting %s: %v", name, err)
				continue
			}
			log.Printf("[INFO] ingested %s from library", name)
		}
	}()
	return nil
}
