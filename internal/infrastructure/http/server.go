// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
	"github.com/hmaged/lectern/internal/domain/usecases"
)

// maxUploadBytes caps document uploads at 64 MiB.
const maxUploadBytes = 64 << 20

// Server exposes the reading session over a JSON API.
type Server struct {
	session *usecases.ReadingSession
	ai      ports.AIService
	addr    string
}

// NewServer creates a new HTTP server.
func NewServer(session *usecases.ReadingSession, ai ports.AIService, addr string) *Server {
	return &Server{
		session: session,
		ai:      ai,
		addr:    addr,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(loggingMiddleware(s.routes())),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // AI requests can be slow
	}

	log.Printf("[INFO] Lectern server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// routes builds the API mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/session", s.handleSession)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/documents", s.handleAddDocument)
	mux.HandleFunc("POST /api/documents/{id}/open", s.handleOpenDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/keywords", s.handleKeywords)
	mux.HandleFunc("POST /api/chapters", s.handleChapters)
	mux.HandleFunc("POST /api/view/toggle", s.handleToggleView)
	mux.HandleFunc("POST /api/research", s.handleResearch)

	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search/next", s.handleNextResult)
	mux.HandleFunc("POST /api/search/prev", s.handlePrevResult)

	mux.HandleFunc("PUT /api/page", s.handleSetPage)
	mux.HandleFunc("PUT /api/scroll", s.handleUpdateScroll)
	mux.HandleFunc("PUT /api/font", s.handleSetFont)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	mux.HandleFunc("GET /api/playback", s.handlePlaybackStatus)
	mux.HandleFunc("POST /api/playback/play", s.handlePlay)
	mux.HandleFunc("POST /api/playback/pause", s.handlePause)
	mux.HandleFunc("POST /api/playback/resume", s.handleResume)
	mux.HandleFunc("POST /api/playback/stop", s.handleStop)
	mux.HandleFunc("PUT /api/playback/speed", s.handleSetSpeed)
	mux.HandleFunc("PUT /api/playback/voice", s.handleSelectVoice)

	return mux
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSession returns the current session snapshot.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

// handleListDocuments returns the stored library.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	books := s.session.ListBooks(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"documents": books})
}

// handleAddDocument ingests an uploaded document and opens it.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	book, err := s.session.AddDocument(r.Context(), header.Filename, data)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, entities.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// handleOpenDocument makes a stored document the current one.
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	book, err := s.session.OpenBook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// handleDeleteDocument removes a document. Preloaded books are refused.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.session.DeleteBook(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, entities.ErrPreloadedBook):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, entities.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleTranslate requests a translation of the current document. The
// response text may be a degraded error message; it is still displayable.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	translated, err := s.session.RequestTranslation(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translation": translated})
}

// handleSummary requests a summary of the current document.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.session.RequestSummary(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// handleKeywords requests keywords for the current document.
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.session.RequestKeywords(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})
}

// handleChapters requests the chapter index of the current document.
func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	index, err := s.session.RequestChapterIndex(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, index)
}

// handleToggleView flips the current document between original and
// translated text.
func (s *Server) handleToggleView(w http.ResponseWriter, r *http.Request) {
	mode, err := s.session.ToggleView(r.Context())
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, entities.ErrNoTranslation) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"display_mode": string(mode)})
}

// handleResearch answers a free-form research query with cited sources.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	result, err := s.ai.Research(r.Context(), req.Query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSearch recomputes search results for a term.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results := s.session.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleNextResult advances to the next search hit.
func (s *Server) handleNextResult(w http.ResponseWriter, r *http.Request) {
	result, ok := s.session.NextResult(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "found": ok})
}

// handlePrevResult moves to the previous search hit.
func (s *Server) handlePrevResult(w http.ResponseWriter, r *http.Request) {
	result, ok := s.session.PrevResult(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "found": ok})
}

// handleSetPage moves to a page, clamped to the document's range.
func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "page required")
		return
	}
	page := s.session.SetPage(r.Context(), req.Page)
	writeJSON(w, http.StatusOK, map[string]int{"page": page})
}

// handleUpdateScroll records the in-page scroll position.
func (s *Server) handleUpdateScroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "position required")
		return
	}
	if err := s.session.UpdateScroll(r.Context(), req.Position); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetFont updates the current document's font size and family.
func (s *Server) handleSetFont(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size   *int    `json:"size,omitempty"`
		Family *string `json:"family,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "size or family required")
		return
	}
	if req.Size != nil {
		if err := s.session.SetFontSize(r.Context(), *req.Size); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}
	if req.Family != nil {
		if err := s.session.SetFontFamily(r.Context(), *req.Family); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

// handleGetSettings returns the stored display settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Store().LoadSettings(r.Context()))
}

// handlePutSettings replaces the display settings. The stored result is
// returned because normalization may adjust what was submitted.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings entities.DisplaySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings")
		return
	}
	saved := s.session.Store().SaveSettings(r.Context(), settings)
	writeJSON(w, http.StatusOK, saved)
}

// handlePlaybackStatus returns the playback snapshot.
func (s *Server) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

// handlePlay speaks the text currently on screen.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.session.PlayVisible(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.session.Playback().Pause()
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.session.Playback().Resume()
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Playback().Stop()
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

// handleSetSpeed updates the playback speed, clamped to the allowed range.
func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "speed required")
		return
	}
	s.session.Playback().SetSpeed(req.Speed)
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

// handleSelectVoice picks a discovered voice by name.
func (s *Server) handleSelectVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	s.session.Playback().SelectVoice(req.Name)
	writeJSON(w, http.StatusOK, s.session.Playback().Snapshot())
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNoDocument):
		return http.StatusConflict
	case errors.Is(err, entities.ErrBookNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
