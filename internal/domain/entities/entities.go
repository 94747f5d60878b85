// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Display and font bounds, carried over from the reference reader UI.
const (
	MinFontSize     = 12
	MaxFontSize     = 36
	DefaultFontSize = 18
	FontSizeStep    = 2

	DefaultFontFamily = "font-cairo"

	DefaultBackgroundColor = "#FFFFFF"
	DefaultTextColor       = "#1A202C"
	DarkBackgroundColor    = "#121212"
	DarkModeTextColor      = "#E2E8F0"
)

// DisplayMode selects which text variant of a book is rendered.
type DisplayMode string

const (
	DisplayModeOriginal   DisplayMode = "original"
	DisplayModeTranslated DisplayMode = "translated"
)

// Opposite returns the other display mode.
func (m DisplayMode) Opposite() DisplayMode {
	if m == DisplayModeTranslated {
		return DisplayModeOriginal
	}
	return DisplayModeTranslated
}

// ChapterIndexItem is a detected section heading used for in-document navigation.
type ChapterIndexItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ChapterSource tags how a chapter index was obtained. Heuristic results are
// lower-confidence than a successfully parsed model response.
type ChapterSource string

const (
	ChapterSourceModel     ChapterSource = "model"
	ChapterSourceHeuristic ChapterSource = "heuristic"
)

// ChapterIndex is the tagged outcome of chapter detection.
// Raw preserves the unparsed model response when parsing failed.
type ChapterIndex struct {
	Items  []ChapterIndexItem `json:"items"`
	Source ChapterSource      `json:"source"`
	Raw    string             `json:"raw,omitempty"`
}

// ArtifactKind names an AI-derived text artifact on a book.
type ArtifactKind string

const (
	ArtifactTranslation ArtifactKind = "translation"
	ArtifactSummary     ArtifactKind = "summary"
	ArtifactKeywords    ArtifactKind = "keywords"
	ArtifactChapters    ArtifactKind = "chapters"
)

// Book is a single ingested reading item. OriginalText and DateAdded are
// immutable once set; preloaded books additionally cannot be deleted.
type Book struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	OriginalText   string             `json:"original_text"`
	PageTexts      []string           `json:"page_texts"`
	TranslatedText string             `json:"translated_text,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	Keywords       []string           `json:"keywords,omitempty"`
	Chapters       []ChapterIndexItem `json:"chapters,omitempty"`

	// Degraded marks artifacts whose stored value is an error-describing
	// string rather than a real result. Degraded artifacts are displayable
	// but are not treated as cached: re-requesting them calls the AI again.
	Degraded map[ArtifactKind]bool `json:"degraded,omitempty"`

	DisplayMode            DisplayMode `json:"display_mode"`
	LastReadScrollPosition float64     `json:"last_read_scroll_position"`
	FontFamily             string      `json:"font_family"`
	FontSize               int         `json:"font_size"`
	DateAdded              time.Time   `json:"date_added"`
	IsPreloaded            bool        `json:"is_preloaded"`
}

// PageCount returns the number of extracted pages.
func (b *Book) PageCount() int {
	return len(b.PageTexts)
}

// PageText returns the text of a 1-indexed page, or "" when out of range.
func (b *Book) PageText(page int) string {
	if page < 1 || page > len(b.PageTexts) {
		return ""
	}
	return b.PageTexts[page-1]
}

// IsDegraded reports whether the stored artifact is an error placeholder.
func (b *Book) IsDegraded(kind ArtifactKind) bool {
	return b.Degraded[kind]
}

// MarkDegraded records whether an artifact holds a degraded value.
func (b *Book) MarkDegraded(kind ArtifactKind, degraded bool) {
	if degraded {
		if b.Degraded == nil {
			b.Degraded = make(map[ArtifactKind]bool)
		}
		b.Degraded[kind] = true
		return
	}
	delete(b.Degraded, kind)
}

// ClampFontSize bounds a font size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// DisplaySettings are the process-wide reader display preferences.
type DisplaySettings struct {
	FontSizePercent int    `json:"font_size_percent"`
	FontFamily      string `json:"font_family"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

// DefaultDisplaySettings returns the process-start defaults.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		FontSizePercent: 100,
		FontFamily:      DefaultFontFamily,
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
	}
}

// Normalize enforces the dark-mode foreground coupling: the dark background
// always pairs with the dark foreground, and any other background reverts the
// foreground to the default. Applied on every settings mutation, not just at
// creation.
func (s *DisplaySettings) Normalize() {
	if s.FontSizePercent <= 0 {
		s.FontSizePercent = 100
	}
	if s.FontFamily == "" {
		s.FontFamily = DefaultFontFamily
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = DefaultBackgroundColor
	}
	if s.BackgroundColor == DarkBackgroundColor {
		s.TextColor = DarkModeTextColor
	} else if s.TextColor == DarkModeTextColor || s.TextColor == "" {
		s.TextColor = DefaultTextColor
	}
}

// SearchResult reports how many times a term occurs on a page.
type SearchResult struct {
	Page  int `json:"page"`
	Count int `json:"count"`
}

// VoiceInfo describes a voice offered by the speech engine.
type VoiceInfo struct {
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

// PlaybackState is the controller-tracked speech playback state.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

// Playback speed bounds (multiplier of the engine's normal rate).
const (
	MinPlaybackSpeed     = 0.5
	MaxPlaybackSpeed     = 2.0
	DefaultPlaybackSpeed = 1.0
)

// ClampPlaybackSpeed bounds a speed to [MinPlaybackSpeed, MaxPlaybackSpeed].
func ClampPlaybackSpeed(speed float64) float64 {
	if speed < MinPlaybackSpeed {
		return MinPlaybackSpeed
	}
	if speed > MaxPlaybackSpeed {
		return MaxPlaybackSpeed
	}
	return speed
}

// ResearchSource is one cited source of a research answer.
type ResearchSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ResearchResult is an AI research answer with its sources.
type ResearchResult struct {
	Text    string           `json:"text"`
	Sources []ResearchSource `json:"sources"`
}
