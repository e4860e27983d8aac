// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package relay sequences provider calls into the three request pipelines
// (speak, echo, converse) and diverts to a best-effort fallback at the
// exact stage that fails. Callers always get a speakable payload back,
// never a bare fault: that is the behavioral contract of the relay.
package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vocalis-dev/vocalis/internal/provider"
	"github.com/vocalis-dev/vocalis/internal/session"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// Stage-specific fallback messages. The wording is part of the user
// experience: each names the capability that degraded.
const (
	msgGeneric         = "I'm having trouble connecting right now."
	msgNoAudio         = "No audio was generated."
	msgSTTUnavailable  = "Speech-to-text service unavailable."
	msgSTTFailed       = "Speech recognition failed."
	msgNoTranscript    = "No transcription received."
	msgEmptyTranscript = "Empty transcription."
	msgGenUnavailable  = "AI service unavailable."
	msgGenFailed       = "AI is currently unavailable."
	msgEchoVoiceFailed = "Voice generation failed."
	msgChatVoiceFailed = "Voice service unavailable."
)

// Outcome is the tagged result of one pipeline run. Exactly one of two
// shapes applies: a success payload (Fallback false, per-pipeline fields
// set) or a fallback payload (Fallback true, Text always speakable,
// AudioURL best-effort, Err the classified stage error).
type Outcome struct {
	Transcript string
	Response   string
	AudioURL   string

	Fallback bool
	Text     string
	Err      error
}

// Orchestrator runs the pipelines against whatever providers the
// registry resolved at startup.
type Orchestrator struct {
	providers *provider.Registry
	sessions  session.Store
	fallback  *Fallbacker
	timeout   time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout bounds each provider call. Defaults to 10s.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates an Orchestrator over the given capability registry and
// session store.
func New(providers *provider.Registry, sessions session.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		sessions:  sessions,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.fallback = NewFallbacker(providers, o.timeout)
	return o
}

// Speak synthesizes the given text directly.
func (o *Orchestrator) Speak(ctx context.Context, text string) Outcome {
	synth, ok := o.providers.Synthesizer()
	if !ok {
		return o.divert(ctx, "tts", msgGeneric,
			vocerr.New(vocerr.CodeProviderUnavailable, "no synthesizer configured"))
	}

	url, err := o.synthesize(ctx, synth, text)
	if err != nil {
		if vocerr.IsEmptyResult(err) {
			return o.divert(ctx, "tts", msgNoAudio, err)
		}
		return o.divert(ctx, "tts", msgGeneric, err)
	}

	return Outcome{AudioURL: url}
}

// Echo transcribes the audio and speaks the transcript back. A transcript
// obtained before a failing synthesis stage is discarded: the caller only
// sees the fallback shape.
func (o *Orchestrator) Echo(ctx context.Context, audio []byte) Outcome {
	tr, ok := o.providers.Transcriber()
	if !ok {
		return o.divert(ctx, "stt", msgSTTUnavailable,
			vocerr.New(vocerr.CodeProviderUnavailable, "no transcriber configured"))
	}

	transcript, err := o.transcribe(ctx, tr, audio)
	if err != nil {
		if vocerr.IsEmptyResult(err) {
			return o.divert(ctx, "stt", msgNoTranscript, err)
		}
		return o.divert(ctx, "stt", msgSTTFailed, err)
	}

	synth, ok := o.providers.Synthesizer()
	if !ok {
		return o.divert(ctx, "tts", msgEchoVoiceFailed,
			vocerr.New(vocerr.CodeProviderUnavailable, "no synthesizer configured"))
	}

	url, err := o.synthesize(ctx, synth, transcript)
	if err != nil {
		return o.divert(ctx, "tts", msgEchoVoiceFailed, err)
	}

	return Outcome{Transcript: transcript, AudioURL: url}
}

// Converse runs the conversational pipeline for one session: transcribe,
// record the user turn, generate the next turn from the full history,
// record it, and speak it.
//
// History mutations are never rolled back: a user turn recorded before a
// failing generation stage stays recorded, and only a successful
// generation records a bot turn.
func (o *Orchestrator) Converse(ctx context.Context, sessionID string, audio []byte) Outcome {
	tr, trOK := o.providers.Transcriber()
	if !trOK {
		return o.divert(ctx, "stt", msgSTTUnavailable,
			vocerr.New(vocerr.CodeProviderUnavailable, "no transcriber configured"))
	}
	gen, genOK := o.providers.Generator()
	if !genOK {
		return o.divert(ctx, "generate", msgGenUnavailable,
			vocerr.New(vocerr.CodeProviderUnavailable, "no generator configured"))
	}

	transcript, err := o.transcribe(ctx, tr, audio)
	if err != nil {
		// The pipeline ends here with no history mutation for this turn.
		if vocerr.IsEmptyResult(err) {
			return o.divert(ctx, "stt", msgEmptyTranscript, err)
		}
		return o.divert(ctx, "stt", msgSTTFailed, err)
	}

	if err := o.sessions.Append(ctx, sessionID, session.Turn{Role: session.RoleUser, Content: transcript}); err != nil {
		return o.divert(ctx, "history", msgGeneric, err)
	}

	turns, err := o.sessions.History(ctx, sessionID)
	if err != nil {
		return o.divert(ctx, "history", msgGeneric, err)
	}

	response, err := o.generate(ctx, gen, session.Flatten(turns))
	if err != nil {
		return o.divert(ctx, "generate", msgGenFailed, err)
	}

	if err := o.sessions.Append(ctx, sessionID, session.Turn{Role: session.RoleBot, Content: response}); err != nil {
		return o.divert(ctx, "history", msgGeneric, err)
	}

	synth, ok := o.providers.Synthesizer()
	if !ok {
		return o.divert(ctx, "tts", msgChatVoiceFailed,
			vocerr.New(vocerr.CodeProviderUnavailable, "no synthesizer configured"))
	}
	url, err := o.synthesize(ctx, synth, response)
	if err != nil {
		return o.divert(ctx, "tts", msgChatVoiceFailed, err)
	}

	return Outcome{Transcript: transcript, Response: response, AudioURL: url}
}

// transcribe runs one bounded speech-to-text attempt.
func (o *Orchestrator) transcribe(ctx context.Context, tr provider.Transcriber, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return tr.Transcribe(ctx, audio)
}

// synthesize runs one bounded text-to-speech attempt.
func (o *Orchestrator) synthesize(ctx context.Context, synth provider.Synthesizer, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return synth.Synthesize(ctx, text)
}

// generate runs one bounded generation attempt and trims the result.
func (o *Orchestrator) generate(ctx context.Context, gen provider.Generator, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	response, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// divert logs the stage failure and produces the fallback outcome. This
// is the only exit path for a failed stage; no provider error propagates
// past it.
func (o *Orchestrator) divert(ctx context.Context, stage, message string, err error) Outcome {
	slog.Warn("pipeline stage failed, diverting to fallback",
		"stage", stage,
		"error", err,
	)

	text, audioURL := o.fallback.Respond(ctx, message)
	return Outcome{
		Fallback: true,
		Text:     text,
		AudioURL: audioURL,
		Err:      err,
	}
}
