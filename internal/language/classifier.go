// Package language labels utterances for speech-output voice selection.
package language

import (
	"strings"

	"voicechat/internal/domain"
)

// romanHindi are transliterated Hindi function words. Matching is by
// substring on the lower-cased text.
var romanHindi = []string{"kya", "hai", "samjhao", "batao", "kaise", "kyu", "mujhe"}

// Classify returns LanguageHindi when text contains Devanagari or any of the
// romanized Hindi keywords, LanguageEnglish otherwise.
func Classify(text string) domain.Language {
	if HasDevanagari(text) {
		return domain.LanguageHindi
	}

	lower := strings.ToLower(text)
	for _, w := range romanHindi {
		if strings.Contains(lower, w) {
			return domain.LanguageHindi
		}
	}

	return domain.LanguageEnglish
}

// HasDevanagari reports whether any rune falls in U+0900..U+097F.
func HasDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
