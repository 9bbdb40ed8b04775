package domain

import "time"

// Capture is one finalized result of a listening session. Sources that do
// their own recognition fill Text; sources that record fill Audio and leave
// transcription to a SpeechToText client.
type Capture struct {
	Text       string
	Audio      []byte
	Source     string
	ReceivedAt time.Time
}

func (c Capture) IsAudio() bool {
	return len(c.Audio) > 0
}
