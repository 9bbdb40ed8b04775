package language_test

import (
	"strings"
	"testing"

	"voicechat/internal/domain"
	"voicechat/internal/language"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{name: "empty", text: "", want: domain.LanguageEnglish},
		{name: "plain english", text: "What is the capital of France", want: domain.LanguageEnglish},
		{name: "devanagari", text: "भारत की राजधानी क्या है", want: domain.LanguageHindi},
		{name: "devanagari mixed with english", text: "Tell me about दिल्ली", want: domain.LanguageHindi},
		{name: "roman keyword", text: "photosynthesis kya hota", want: domain.LanguageHindi},
		{name: "roman keyword upper case", text: "MUJHE BATAO", want: domain.LanguageHindi},
		{name: "keyword as substring", text: "Move the chair", want: domain.LanguageHindi},
		{name: "devanagari digit", text: "१२३", want: domain.LanguageHindi},
		{name: "other indic script", text: "বাংলা", want: domain.LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := language.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q): got %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_EveryKeyword(t *testing.T) {
	for _, kw := range language.RomanHindi {
		for _, variant := range []string{kw, strings.ToUpper(kw), "so " + kw + " then"} {
			if got := language.Classify(variant); got != domain.LanguageHindi {
				t.Errorf("Classify(%q): got %s, want hi", variant, got)
			}
		}
	}
}

func TestLocale(t *testing.T) {
	if got := domain.LanguageHindi.Locale(); got != "hi-IN" {
		t.Errorf("hi locale: got %s, want hi-IN", got)
	}
	if got := domain.LanguageEnglish.Locale(); got != "en-US" {
		t.Errorf("en locale: got %s, want en-US", got)
	}
}
