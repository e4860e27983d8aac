// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package google_test

import (
	"testing"

	"github.com/vocalis-dev/vocalis/internal/provider"
	"github.com/vocalis-dev/vocalis/internal/provider/google"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface satisfaction check.
var _ provider.Generator = (*google.Generator)(nil)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := google.New(google.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, vocerr.HasCode(err, vocerr.CodeProviderRequestInvalid))
}

func TestGenerator_Name(t *testing.T) {
	g := mustNewGenerator(t)
	assert.Equal(t, "google", g.Name())
}

func TestGenerator_Close(t *testing.T) {
	g := mustNewGenerator(t)
	assert.NoError(t, g.Close())
}

// mustNewGenerator creates a generator with a dummy API key for unit tests.
func mustNewGenerator(t *testing.T) *google.Generator {
	t.Helper()
	g, err := google.New(google.Config{
		APIKey: "test-key-not-real",
	})
	require.NoError(t, err)
	return g
}
