// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/vocalis-dev/vocalis/internal/provider"
)

// Fallbacker produces a safe degraded payload: the message itself, plus a
// best-effort synthesis of it so the caller can still speak. It is itself
// a tiny pipeline whose failures are swallowed: fallback generation can
// never fail a request.
type Fallbacker struct {
	providers *provider.Registry
	timeout   time.Duration
}

// NewFallbacker creates a Fallbacker over the capability registry.
func NewFallbacker(providers *provider.Registry, timeout time.Duration) *Fallbacker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fallbacker{providers: providers, timeout: timeout}
}

// Respond returns the message and, when a synthesizer is configured, the
// URL of exactly one bounded synthesis attempt for it. A failed or absent
// synthesizer degrades to a text-only payload; it is logged, never
// surfaced, and never retried.
func (f *Fallbacker) Respond(ctx context.Context, message string) (text, audioURL string) {
	synth, ok := f.providers.Synthesizer()
	if !ok {
		return message, ""
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url, err := synth.Synthesize(ctx, message)
	if err != nil {
		slog.Warn("fallback synthesis failed, degrading to text only",
			"provider", synth.Name(),
			"error", err,
		)
		return message, ""
	}
	return message, url
}
