package domain

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// Locale returns the speech-output locale used for the language.
func (l Language) Locale() string {
	if l == LanguageHindi {
		return "hi-IN"
	}
	return "en-US"
}

// Utterance is one sub-question split out of a raw transcript.
type Utterance struct {
	Text     string
	Language Language
}

// Fixed replies substituted when the answer service cannot produce one.
const (
	FallbackAnswer     = "Sorry, I didn't understand."
	NetworkErrorAnswer = "Network error while fetching answer."
)
