// Package usecases - textview.go owns a book's AI-derived text artifacts.
package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
)

// keywordInputLimit bounds the text sent for keyword extraction.
const keywordInputLimit = 5000

// chapterTitlePrefixes mark lines that look like section headings. Used as a
// deterministic fallback when the model's chapter listing cannot be parsed.
var chapterTitlePrefixes = []string{"الفصل", "القسم", "مقدمة", "Chapter"}

// codeFenceRe strips a surrounding markdown code fence from model output.
var codeFenceRe = regexp.MustCompile("(?s)^```(?:[a-zA-Z]*)?\\s*\\n?(.*?)\\n?\\s*```$")

// TextViewManager owns the derived textual artifacts of books and gates
// concurrent AI requests: each artifact kind is single-flight per book, so
// concurrent callers attach to the in-flight request instead of issuing a
// duplicate network call. Translation, summary and keywords for the same book
// are independent and may run, and complete, in any order.
//
// Books are read from and written back to the session store around every
// request, so a result that arrives after the user navigated away is still
// applied to that book's persisted record.
type TextViewManager struct {
	ai    ports.AIService
	store *SessionStore
	group singleflight.Group
}

// NewTextViewManager creates a TextViewManager with injected dependencies.
func NewTextViewManager(ai ports.AIService, store *SessionStore) *TextViewManager {
	return &TextViewManager{ai: ai, store: store}
}

func flightKey(kind entities.ArtifactKind, bookID string) string {
	return string(kind) + ":" + bookID
}

// RequestTranslation returns the book's translated text, calling the AI
// collaborator only when no non-degraded translation is cached. On
// completion the display mode flips to the opposite of its pre-call value:
// requesting a translation while viewing the original switches to the
// translated view and vice versa.
func (m *TextViewManager) RequestTranslation(ctx context.Context, bookID string) (string, error) {
	book, ok := m.store.LoadBook(ctx, bookID)
	if !ok {
		return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
	}

	if book.TranslatedText != "" && !book.IsDegraded(entities.ArtifactTranslation) {
		book.DisplayMode = book.DisplayMode.Opposite()
		m.store.SaveBook(ctx, book)
		return book.TranslatedText, nil
	}

	v, err, _ := m.group.Do(flightKey(entities.ArtifactTranslation, bookID), func() (interface{}, error) {
		book, ok := m.store.LoadBook(ctx, bookID)
		if !ok {
			return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}

		translated, err := m.ai.Translate(ctx, book.OriginalText)
		degraded := err != nil || !m.ai.Configured()
		if err != nil {
			translated = fmt.Sprintf("حدث خطأ أثناء الترجمة: %v", err)
		}

		// The call can take a while; re-load so mutations persisted while it
		// was in flight are not overwritten by the stale snapshot.
		book, ok = m.store.LoadBook(ctx, bookID)
		if !ok {
			return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}
		book.TranslatedText = translated
		book.MarkDegraded(entities.ArtifactTranslation, degraded)
		book.DisplayMode = book.DisplayMode.Opposite()
		m.store.SaveBook(ctx, book)
		return translated, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RequestSummary returns the book's summary, calling the AI collaborator only
// when no non-degraded summary is cached.
func (m *TextViewManager) RequestSummary(ctx context.Context, bookID string) (string, error) {
	book, ok := m.store.LoadBook(ctx, bookID)
	if !ok {
		return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
	}
	if book.Summary != "" && !book.IsDegraded(entities.ArtifactSummary) {
		return book.Summary, nil
	}

	v, err, _ := m.group.Do(flightKey(entities.ArtifactSummary, bookID), func() (interface{}, error) {
		book, ok := m.store.LoadBook(ctx, bookID)
		if !ok {
			return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}

		summary, err := m.ai.Summarize(ctx, book.OriginalText)
		degraded := err != nil || !m.ai.Configured()
		if err != nil {
			summary = fmt.Sprintf("حدث خطأ أثناء التلخيص: %v", err)
		}

		book, ok = m.store.LoadBook(ctx, bookID)
		if !ok {
			return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}
		book.Summary = summary
		book.MarkDegraded(entities.ArtifactSummary, degraded)
		m.store.SaveBook(ctx, book)
		return summary, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RequestKeywords returns the book's keywords, calling the AI collaborator
// only when no non-degraded keyword list is cached. Keyword extraction reads
// at most the first keywordInputLimit bytes of the original text.
func (m *TextViewManager) RequestKeywords(ctx context.Context, bookID string) ([]string, error) {
	book, ok := m.store.LoadBook(ctx, bookID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
	}
	if len(book.Keywords) > 0 && !book.IsDegraded(entities.ArtifactKeywords) {
		return book.Keywords, nil
	}

	v, err, _ := m.group.Do(flightKey(entities.ArtifactKeywords, bookID), func() (interface{}, error) {
		book, ok := m.store.LoadBook(ctx, bookID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}

		input := book.OriginalText
		if len(input) > keywordInputLimit {
			input = input[:keywordInputLimit]
		}

		keywords, err := m.ai.Keywords(ctx, input)
		degraded := err != nil || !m.ai.Configured()
		if err != nil {
			keywords = []string{fmt.Sprintf("حدث خطأ أثناء استخراج الكلمات المفتاحية: %v", err)}
		}

		book, ok = m.store.LoadBook(ctx, bookID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}
		book.Keywords = keywords
		book.MarkDegraded(entities.ArtifactKeywords, degraded)
		m.store.SaveBook(ctx, book)
		return keywords, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// RequestChapterIndex asks the AI for a chapter listing of the book and
// records the detected chapters. The model response is parsed defensively;
// when it is not the expected JSON shape, or the call itself fails, a
// deterministic heuristic scans for section-marker-like lines and the result
// is tagged as lower-confidence.
func (m *TextViewManager) RequestChapterIndex(ctx context.Context, bookID string) (*entities.ChapterIndex, error) {
	v, err, _ := m.group.Do(flightKey(entities.ArtifactChapters, bookID), func() (interface{}, error) {
		book, ok := m.store.LoadBook(ctx, bookID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}

		// Index the translated text when a real translation exists,
		// otherwise the original.
		text := book.OriginalText
		if book.TranslatedText != "" && !book.IsDegraded(entities.ArtifactTranslation) {
			text = book.TranslatedText
		}

		index := m.detectChapters(ctx, text)

		book, ok = m.store.LoadBook(ctx, bookID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
		}
		book.Chapters = index.Items
		m.store.SaveBook(ctx, book)
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.ChapterIndex), nil
}

// detectChapters runs model-based chapter detection with the heuristic
// fallback.
func (m *TextViewManager) detectChapters(ctx context.Context, text string) *entities.ChapterIndex {
	raw, err := m.ai.ChapterIndex(ctx, text)
	if err != nil {
		return &entities.ChapterIndex{
			Items:  heuristicChapters(text),
			Source: entities.ChapterSourceHeuristic,
		}
	}

	items, ok := parseChapterJSON(raw)
	if !ok {
		return &entities.ChapterIndex{
			Items:  heuristicChapters(text),
			Source: entities.ChapterSourceHeuristic,
			Raw:    raw,
		}
	}
	return &entities.ChapterIndex{Items: items, Source: entities.ChapterSourceModel}
}

// parseChapterJSON parses the model's chapter listing. Generative output is
// never trusted: a surrounding code fence is stripped and anything that is
// not an array of {"title": string} objects is rejected.
func parseChapterJSON(raw string) ([]entities.ChapterIndexItem, bool) {
	trimmed := strings.TrimSpace(raw)
	if match := codeFenceRe.FindStringSubmatch(trimmed); match != nil {
		trimmed = strings.TrimSpace(match[1])
	}

	var parsed []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}

	items := make([]entities.ChapterIndexItem, 0, len(parsed))
	for i, entry := range parsed {
		if strings.TrimSpace(entry.Title) == "" {
			return nil, false
		}
		items = append(items, entities.ChapterIndexItem{
			ID:    chapterID(i, entry.Title),
			Title: entry.Title,
		})
	}
	return items, true
}

// heuristicChapters scans for lines that look like section headings: short
// standalone lines starting with a known chapter marker.
func heuristicChapters(text string) []entities.ChapterIndexItem {
	var items []entities.ChapterIndexItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		// Bounds are in characters, not bytes: Arabic headings run two to
		// three bytes per character.
		length := utf8.RuneCountInString(line)
		if length <= 5 || length >= 100 {
			continue
		}
		for _, prefix := range chapterTitlePrefixes {
			if strings.HasPrefix(line, prefix) {
				items = append(items, entities.ChapterIndexItem{
					ID:    fmt.Sprintf("heuristic-chapter-%d", len(items)),
					Title: line,
				})
				break
			}
		}
	}
	return items
}

// chapterID builds a stable, URL-safe chapter identifier from the title.
func chapterID(index int, title string) string {
	runes := []rune(title)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return fmt.Sprintf("chapter-%d-%s", index, url.PathEscape(string(runes)))
}

// ToggleView flips the book's display mode, but only when the target mode's
// text exists. Switching to a never-requested translation fails with
// ErrNoTranslation and leaves the mode unchanged, so the caller can
// distinguish "nothing happened" from "this view is not populated yet".
func (m *TextViewManager) ToggleView(ctx context.Context, bookID string) (entities.DisplayMode, error) {
	book, ok := m.store.LoadBook(ctx, bookID)
	if !ok {
		return "", fmt.Errorf("%w: %s", entities.ErrBookNotFound, bookID)
	}

	target := book.DisplayMode.Opposite()
	if target == entities.DisplayModeTranslated && book.TranslatedText == "" {
		return book.DisplayMode, entities.ErrNoTranslation
	}

	book.DisplayMode = target
	m.store.SaveBook(ctx, book)
	return target, nil
}
