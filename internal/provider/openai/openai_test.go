// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vocalis-dev/vocalis/internal/provider"
	"github.com/vocalis-dev/vocalis/internal/provider/openai"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ provider.Generator = (*openai.Generator)(nil)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.True(t, vocerr.HasCode(err, vocerr.CodeProviderRequestInvalid))
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": "  Hi there  ",
					},
				},
			},
		})
	}))
	defer srv.Close()

	g, err := openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), "user: Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-2",
			"object":  "chat.completion",
			"choices": []map[string]any{},
		})
	}))
	defer srv.Close()

	g, err := openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "user: Hello")
	require.Error(t, err)
	assert.True(t, vocerr.IsEmptyResult(err))
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, err := openai.New(openai.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "user: Hello")
	require.Error(t, err)
	assert.True(t, vocerr.IsUpstreamFailure(err))
}
