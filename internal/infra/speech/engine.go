// Package speech plays assistant replies through a platform text-to-speech
// engine, one reply at a time.
package speech

import (
	"context"
	"strings"
)

// Voice is one entry of an engine's voice registry.
type Voice struct {
	Name   string
	Locale string
}

// Request is a single reply to speak. A nil Voice means the engine default.
type Request struct {
	Text   string
	Locale string
	Voice  *Voice
}

// Engine is a platform speech-output capability. Speak blocks until the
// text has been spoken or ctx is cancelled.
type Engine interface {
	Name() string
	Voices() []Voice
	Available(ctx context.Context) error
	Speak(ctx context.Context, req Request) error
}

// SelectVoice picks the voice whose locale equals locale, then the first
// whose primary language subtag matches. ok is false when none fits.
func SelectVoice(voices []Voice, locale string) (Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.Locale, locale) {
			return v, true
		}
	}

	primary := primarySubtag(locale)
	for _, v := range voices {
		if primarySubtag(v.Locale) == primary {
			return v, true
		}
	}

	return Voice{}, false
}

func primarySubtag(locale string) string {
	locale = strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
	if i := strings.IndexByte(locale, '-'); i >= 0 {
		return locale[:i]
	}
	return locale
}

// VoicesFromMap builds a registry from locale to voice name pairs, as read
// from configuration.
func VoicesFromMap(m map[string]string) []Voice {
	voices := make([]Voice, 0, len(m))
	for _, locale := range []string{"en-US", "hi-IN"} {
		if name, ok := m[locale]; ok && name != "" {
			voices = append(voices, Voice{Name: name, Locale: locale})
		}
	}
	for locale, name := range m {
		if locale == "en-US" || locale == "hi-IN" || name == "" {
			continue
		}
		voices = append(voices, Voice{Name: name, Locale: locale})
	}
	return voices
}
