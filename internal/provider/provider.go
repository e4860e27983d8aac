// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package provider defines the narrow interfaces Vocalis uses to reach
// external speech and language services, and the capability registry that
// holds whichever providers were configured at startup.
package provider

import (
	"context"
)

// Transcriber converts raw audio bytes to text (speech-to-text).
//
// Implementations make exactly one attempt per call, bounded by the
// context deadline. An upstream success that carries no text is returned
// as a provider.response.empty error, never as ("", nil).
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Close() error
}

// Synthesizer converts text to a hosted audio artifact URL (text-to-speech).
//
// Implementations make exactly one attempt per call, bounded by the
// context deadline. A response without an audio URL is a
// provider.response.empty error.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (string, error)
	Close() error
}

// Generator produces the next conversational turn from a flattened
// transcript prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
