// Package usecases - preloaded.go seeds the bundled read-only books.
package usecases

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// Preloaded book identities. Stable so reseeding is idempotent across runs.
const (
	PreloadedQuranID = "preloaded-quran"
	PreloadedNahjID  = "preloaded-nahj"
)

const preloadedQuranText = `بسم الله الرحمن الرحيم
الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ
الرَّحْمَٰنِ الرَّحِيمِ
مَالِكِ يَوْمِ الدِّينِ
إِيَّاكَ نَعْبُدُ وَإِيَّاكَ نَسْتَعِينُ
اهْدِنَا الصِّرَاطَ الْمُسْتَقِيمَ
صِرَاطَ الَّذِينَ أَنْعَمْتَ عَلَيْهِمْ غَيْرِ الْمَغْضُوبِ عَلَيْهِمْ وَلَا الضَّالِّينَ

الفصل الأول: سورة الفاتحة
هذا هو النص الأساسي لسورة الفاتحة.`

const preloadedNahjText = `من خطبة له (عليه السلام) وهي من أفصح كلامه وفيها يعظ الناس ويهديهم من ضلالتهم:
أَمَّا بَعْدُ فَإِنَّ الدُّنْيَا قَدْ أَدْبَرَتْ وَ آذَنَتْ بِوَدَاعٍ وَ إِنَّ الْآخِرَةَ قَدْ أَقْبَلَتْ وَ أَشْرَفَتْ بِاطِّلَاعٍ.

القسم الأول: الدنيا والآخرة
يشرح الإمام علي (ع) حال الدنيا والآخرة.`

type preloadedBook struct {
	id   string
	name string
	text string
}

var preloadedBooks = []preloadedBook{
	{id: PreloadedQuranID, name: "القرآن الكريم (مقتطف)", text: preloadedQuranText},
	{id: PreloadedNahjID, name: "نهج البلاغة (مقتطف)", text: preloadedNahjText},
}

// SeedPreloadedBooks creates the bundled books if they are not stored yet.
// Preloaded books are read-only: their original text is fixed at creation and
// they are excluded from user delete operations.
func SeedPreloadedBooks(ctx context.Context, store *SessionStore) {
	for _, seed := range preloadedBooks {
		if _, ok := store.LoadBook(ctx, seed.id); ok {
			continue
		}

		pages := paginateParagraphs(seed.text)
		book := &entities.Book{
			ID:           seed.id,
			Name:         seed.name,
			OriginalText: strings.Join(pages, PageSeparator),
			PageTexts:    pages,
			DisplayMode:  entities.DisplayModeOriginal,
			FontFamily:   entities.DefaultFontFamily,
			FontSize:     entities.DefaultFontSize,
			DateAdded:    time.Now(),
			IsPreloaded:  true,
		}
		store.SaveBook(ctx, book)
		log.Printf("[INFO] seeded preloaded book %q", seed.name)
	}
}

// paginateParagraphs splits text on blank lines, one page per paragraph
// block. Preloaded texts are short; each section reads as its own page.
func paginateParagraphs(text string) []string {
	var pages []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			pages = append(pages, block)
		}
	}
	if len(pages) == 0 {
		pages = []string{strings.TrimSpace(text)}
	}
	return pages
}
