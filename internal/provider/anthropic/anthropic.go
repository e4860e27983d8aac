// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5"

const defaultMaxTokens = 1024

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, useful for testing against a mock server
}

// Generator implements provider.Generator using the Anthropic Messages API.
type Generator struct {
	client anthropicsdk.Client
	cfg    Config
}

var _ provider.Generator = (*Generator)(nil)

// New creates a new Anthropic generator. Returns an error if the API key
// is missing.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "anthropic: missing api_key in config", vocerr.FieldProvider("anthropic"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Generator{client: anthropicsdk.NewClient(opts...), cfg: cfg}, nil
}

func (g *Generator) Name() string { return "anthropic" }

func (g *Generator) Close() error { return nil }

// Generate makes one non-streaming Messages call with the flattened
// conversation prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.cfg.Model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "anthropic: generation timed out")
		}
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "anthropic: creating message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "anthropic: model returned no text", vocerr.FieldProvider("anthropic"))
	}
	return text, nil
}
