package domain

import "errors"

var (
	// ErrCaptureUnsupported means the configured speech capture cannot run on
	// this platform or build.
	ErrCaptureUnsupported = errors.New("speech capture not supported")

	// ErrCaptureClosed means the source will deliver no more captures.
	ErrCaptureClosed = errors.New("capture source closed")

	// ErrSynthesisUnsupported means no speech output is available.
	ErrSynthesisUnsupported = errors.New("speech synthesis not supported")

	// ErrDialogueBusy is returned when a transcript arrives while another one
	// is still being answered and overlapping calls are rejected.
	ErrDialogueBusy = errors.New("dialogue busy")
)
