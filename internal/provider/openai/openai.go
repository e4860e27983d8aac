// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package openai

import (
	"context"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/vocalis-dev/vocalis/internal/provider"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, useful for testing against a mock server
}

// Generator implements provider.Generator using the OpenAI Chat
// Completions API.
type Generator struct {
	client openaisdk.Client
	cfg    Config
}

var _ provider.Generator = (*Generator)(nil)

// New creates a new OpenAI generator. Returns an error if the API key is
// missing.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, vocerr.New(vocerr.CodeProviderRequestInvalid, "openai: missing api_key in config", vocerr.FieldProvider("openai"))
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

	return &Generator{client: openaisdk.NewClient(opts...), cfg: cfg}, nil
}

func (g *Generator) Name() string { return "openai" }

func (g *Generator) Close() error { return nil }

// Generate makes one non-streaming chat completion call with the
// flattened conversation prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(g.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", vocerr.Wrapf(err, vocerr.CodeProviderCallTimeout, "openai: generation timed out")
		}
		return "", vocerr.Wrapf(err, vocerr.CodeProviderUpstreamFailure, "openai: creating chat completion")
	}

	if len(completion.Choices) == 0 {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "openai: completion has no choices", vocerr.FieldProvider("openai"))
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", vocerr.New(vocerr.CodeProviderResponseEmpty, "openai: model returned no text", vocerr.FieldProvider("openai"))
	}
	return text, nil
}
