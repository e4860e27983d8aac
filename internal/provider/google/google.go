// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package google

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Config holds Google provider configuration.
type Config struct {
	APIKey string
	Model  string
}

// Generator implements provider.Generator using the Google Gemini API.
type Generator struct {
	client *genai.Client
	cfg    Config
}

var _ provider.Generator = (*Generator)(nil)

// New creates a new Google generator. Returns an error if the API key is
// missing.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "google: missing api_key in config", vocerr.FieldProvider("google"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Generator{client: client, cfg: cfg}, nil
}

func (g *Generator) Name() string { return "google" }

func (g *Generator) Close() error { return nil }

// Generate makes one non-streaming content generation call with the
// flattened conversation prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "google: generation timed out")
		}
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "google: generating content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "google: model returned no text", vocerr.FieldProvider("google"))
	}
	return text, nil
}
