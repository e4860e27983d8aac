// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package murf implements text-to-speech against the Murf speech
// generation API. Murf hosts the synthesized audio itself and returns a
// URL, so no local media storage is involved.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

const (
	// DefaultEndpoint is the Murf speech generation endpoint.
	DefaultEndpoint = "https://api.murf.ai/v1/speech/generate"
	// DefaultVoice is used when no voice is configured.
	DefaultVoice = "en-US-natalie"

	defaultTimeout = 10 * time.Second
)

// Config holds Murf provider configuration.
type Config struct {
	APIKey   string
	Endpoint string // optional, useful for testing against a mock server
	Voice    string
	Timeout  time.Duration
}

// Synthesizer implements provider.Synthesizer using the Murf API.
type Synthesizer struct {
	cfg    Config
	client *http.Client
}

var _ provider.Synthesizer = (*Synthesizer)(nil)

// New creates a new Murf synthesizer. Returns an error if the API key is
// missing.
func New(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "murf: missing api_key in config", vocerr.FieldProvider("murf"))
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Synthesizer{cfg: cfg, client: &http.Client{}}, nil
}

func (s *Synthesizer) Name() string { return "murf" }

func (s *Synthesizer) Close() error { return nil }

type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Format  string `json:"format"`
}

type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// Synthesize makes exactly one speech generation call and returns the
// hosted audio URL.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Text: text, VoiceID: s.cfg.Voice, Format: "MP3"})
	if err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "murf: encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderRequestInvalid, "murf: building request")
	}
	req.Header.Set("api-key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "murf: speech generation timed out")
		}
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "murf: speech generation request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", vocerr.Errorf(vocerr.CodeProviderUpstreamFailure,
			"murf: speech generation returned %d: %s", resp.StatusCode, snippet)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "murf: decoding response")
	}
	if out.AudioFile == "" {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "murf: response carried no audio URL", vocerr.FieldProvider("murf"))
	}

	return out.AudioFile, nil
}
