// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package relay_test

import (
	"context"
	"testing"

	"github.com/vocalis-dev/vocalis/internal/provider"
	"github.com/vocalis-dev/vocalis/internal/relay"
	"github.com/vocalis-dev/vocalis/internal/session"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	out   string
	err   error
	calls int
}

func (s *stubTranscriber) Name() string { return "stub-stt" }
func (s *stubTranscriber) Close() error { return nil }

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.out, s.err
}

type stubSynthesizer struct {
	url string
	// errs is consumed one per call; a nil entry or exhaustion means the
	// call succeeds. Lets a test fail the pipeline synthesis while the
	// fallback synthesis succeeds.
	errs  []error
	texts []string
}

func (s *stubSynthesizer) Name() string { return "stub-tts" }
func (s *stubSynthesizer) Close() error { return nil }

func (s *stubSynthesizer) Synthesize(_ context.Context, text string) (string, error) {
	s.texts = append(s.texts, text)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return s.url, nil
}

type stubGenerator struct {
	out     string
	err     error
	prompts []string
}

func (s *stubGenerator) Name() string { return "stub-gen" }
func (s *stubGenerator) Close() error { return nil }

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.out, s.err
}

type fixture struct {
	stt      *stubTranscriber
	tts      *stubSynthesizer
	gen      *stubGenerator
	registry *provider.Registry
	sessions *session.MemoryStore
}

func newFixture() *fixture {
	f := &fixture{
		stt:      &stubTranscriber{out: "Hello"},
		tts:      &stubSynthesizer{url: "https://cdn.example/clip.mp3"},
		gen:      &stubGenerator{out: "Hi there"},
		registry: provider.NewRegistry(),
		sessions: session.NewMemoryStore(),
	}
	f.registry.RegisterTranscriber(f.stt)
	f.registry.RegisterSynthesizer(f.tts)
	f.registry.RegisterGenerator(f.gen)
	return f
}

func (f *fixture) orchestrator() *relay.Orchestrator {
	return relay.New(f.registry, f.sessions)
}

func historyOf(t *testing.T, store session.Store, sessionID string) []session.Turn {
	t.Helper()
	turns, err := store.History(context.Background(), sessionID)
	require.NoError(t, err)
	return turns
}

func upstreamErr() error {
	return vocerr.New(vocerr.CodeProviderUpstreamFailure, "boom")
}

func emptyErr() error {
	return vocerr.New(vocerr.CodeProviderResponseEmpty, "nothing came back")
}

func TestSpeak_Success(t *testing.T) {
	f := newFixture()

	out := f.orchestrator().Speak(context.Background(), "Read this aloud")

	assert.False(t, out.Fallback)
	assert.Equal(t, "https://cdn.example/clip.mp3", out.AudioURL)
	assert.Equal(t, []string{"Read this aloud"}, f.tts.texts)
}

func TestSpeak_NoCaching(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	o.Speak(context.Background(), "Read this aloud")
	o.Speak(context.Background(), "Read this aloud")

	// Identical inputs still make independent provider calls.
	assert.Equal(t, []string{"Read this aloud", "Read this aloud"}, f.tts.texts)
}

func TestSpeak_EmptyAudio(t *testing.T) {
	f := newFixture()
	f.tts.errs = []error{emptyErr()}

	out := f.orchestrator().Speak(context.Background(), "Read this aloud")

	assert.True(t, out.Fallback)
	assert.Equal(t, "No audio was generated.", out.Text)
	assert.True(t, vocerr.IsEmptyResult(out.Err))
	// The fallback message itself still gets spoken.
	assert.Equal(t, "https://cdn.example/clip.mp3", out.AudioURL)
	assert.Equal(t, []string{"Read this aloud", "No audio was generated."}, f.tts.texts)
}

func TestSpeak_NoSynthesizer(t *testing.T) {
	f := newFixture()
	f.registry = provider.NewRegistry()
	f.registry.RegisterTranscriber(f.stt)

	out := f.orchestrator().Speak(context.Background(), "Read this aloud")

	assert.True(t, out.Fallback)
	assert.Equal(t, "I'm having trouble connecting right now.", out.Text)
	assert.Empty(t, out.AudioURL)
	assert.True(t, vocerr.IsUnavailable(out.Err))
}

func TestEcho_Success(t *testing.T) {
	f := newFixture()

	out := f.orchestrator().Echo(context.Background(), []byte("webm-bytes"))

	assert.False(t, out.Fallback)
	assert.Equal(t, "Hello", out.Transcript)
	assert.Equal(t, "https://cdn.example/clip.mp3", out.AudioURL)
	assert.Equal(t, []string{"Hello"}, f.tts.texts)
}

func TestEcho_TranscriptionFails(t *testing.T) {
	f := newFixture()
	f.stt.err = upstreamErr()

	out := f.orchestrator().Echo(context.Background(), []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Speech recognition failed.", out.Text)
	assert.Empty(t, out.Transcript)
}

func TestEcho_EmptyTranscript(t *testing.T) {
	f := newFixture()
	f.stt.err = emptyErr()

	out := f.orchestrator().Echo(context.Background(), []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "No transcription received.", out.Text)
}

func TestEcho_SynthesisFailureDiscardsTranscript(t *testing.T) {
	f := newFixture()
	f.tts.errs = []error{upstreamErr()}

	out := f.orchestrator().Echo(context.Background(), []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Voice generation failed.", out.Text)
	// The successful transcript never reaches the caller.
	assert.Empty(t, out.Transcript)
	// One pipeline attempt, one fallback attempt.
	assert.Equal(t, []string{"Hello", "Voice generation failed."}, f.tts.texts)
	assert.Equal(t, "https://cdn.example/clip.mp3", out.AudioURL)
}

func TestConverse_Success(t *testing.T) {
	f := newFixture()

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.False(t, out.Fallback)
	assert.Equal(t, "Hello", out.Transcript)
	assert.Equal(t, "Hi there", out.Response)
	assert.Equal(t, "https://cdn.example/clip.mp3", out.AudioURL)

	require.Equal(t, []string{"user: Hello"}, f.gen.prompts)
	assert.Equal(t, []session.Turn{
		{Role: session.RoleUser, Content: "Hello"},
		{Role: session.RoleBot, Content: "Hi there"},
	}, historyOf(t, f.sessions, "s1"))
}

func TestConverse_PromptCarriesFullHistory(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	o.Converse(context.Background(), "s1", []byte("turn-1"))

	f.stt.out = "How are you?"
	f.gen.out = "Doing well"
	out := o.Converse(context.Background(), "s1", []byte("turn-2"))

	assert.False(t, out.Fallback)
	require.Len(t, f.gen.prompts, 2)
	assert.Equal(t, "user: Hello\nbot: Hi there\nuser: How are you?", f.gen.prompts[1])
	assert.Len(t, historyOf(t, f.sessions, "s1"), 4)
}

func TestConverse_SessionsAreIsolated(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	o.Converse(context.Background(), "s1", []byte("a"))
	o.Converse(context.Background(), "s2", []byte("b"))

	assert.Len(t, historyOf(t, f.sessions, "s1"), 2)
	assert.Len(t, historyOf(t, f.sessions, "s2"), 2)
	// Second session's first prompt must not see the first session's turns.
	assert.Equal(t, "user: Hello", f.gen.prompts[1])
}

func TestConverse_TranscriptionFailureLeavesHistoryUntouched(t *testing.T) {
	f := newFixture()
	f.stt.err = upstreamErr()

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Speech recognition failed.", out.Text)
	assert.Empty(t, historyOf(t, f.sessions, "s1"))
	assert.Empty(t, f.gen.prompts)
}

func TestConverse_EmptyTranscript(t *testing.T) {
	f := newFixture()
	f.stt.err = emptyErr()

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Empty transcription.", out.Text)
	assert.Empty(t, historyOf(t, f.sessions, "s1"))
}

func TestConverse_GenerationFailureKeepsUserTurn(t *testing.T) {
	f := newFixture()
	f.gen.err = upstreamErr()

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "AI is currently unavailable.", out.Text)
	// The user turn stays recorded; no bot turn is added.
	assert.Equal(t, []session.Turn{
		{Role: session.RoleUser, Content: "Hello"},
	}, historyOf(t, f.sessions, "s1"))
}

func TestConverse_SynthesisFailureKeepsBothTurns(t *testing.T) {
	f := newFixture()
	f.tts.errs = []error{upstreamErr()}

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Voice service unavailable.", out.Text)
	assert.Empty(t, out.Transcript)
	assert.Empty(t, out.Response)
	// Generation succeeded, so the exchange is durable even though the
	// caller got the fallback shape.
	assert.Len(t, historyOf(t, f.sessions, "s1"), 2)
}

func TestConverse_NoTranscriberConfigured(t *testing.T) {
	f := newFixture()
	f.registry = provider.NewRegistry()
	f.registry.RegisterSynthesizer(f.tts)
	f.registry.RegisterGenerator(f.gen)

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "Speech-to-text service unavailable.", out.Text)
	assert.True(t, vocerr.IsUnavailable(out.Err))
}

func TestConverse_NoGeneratorConfigured(t *testing.T) {
	f := newFixture()
	f.registry = provider.NewRegistry()
	f.registry.RegisterTranscriber(f.stt)
	f.registry.RegisterSynthesizer(f.tts)

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.True(t, out.Fallback)
	assert.Equal(t, "AI service unavailable.", out.Text)
	assert.Equal(t, 0, f.stt.calls, "no transcription should be attempted")
}

func TestConverse_GeneratorOutputTrimmed(t *testing.T) {
	f := newFixture()
	f.gen.out = "  Hi there \n"

	out := f.orchestrator().Converse(context.Background(), "s1", []byte("webm-bytes"))

	assert.Equal(t, "Hi there", out.Response)
	turns := historyOf(t, f.sessions, "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "Hi there", turns[1].Content)
}
