// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package media_test

import (
	"io"
	"strings"
	"testing"

	"github.com/vocalis-dev/vocalis/internal/media"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *media.Store {
	t.Helper()
	store, err := media.NewStore(t.TempDir(), "")
	require.NoError(t, err)
	return store
}

func TestPutAudio_RoundTrip(t *testing.T) {
	store := newStore(t)

	url, err := store.PutAudio("audio/mpeg", []byte("mp3-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/media/"), "url %q should be server-relative", url)
	assert.True(t, strings.HasSuffix(url, ".mp3"))

	key := strings.TrimPrefix(url, "/media/")
	rc, contentType, err := store.Open(key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
	assert.Equal(t, "audio/mpeg", contentType)
}

func TestPutAudio_UniqueKeys(t *testing.T) {
	store := newStore(t)

	first, err := store.PutAudio("audio/mpeg", []byte("a"))
	require.NoError(t, err)
	second, err := store.PutAudio("audio/mpeg", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPutAudio_BaseURL(t *testing.T) {
	store, err := media.NewStore(t.TempDir(), "https://relay.example/")
	require.NoError(t, err)

	url, err := store.PutAudio("audio/mpeg", []byte("a"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://relay.example/media/"), url)
}

func TestSpoolUpload(t *testing.T) {
	store := newStore(t)

	data, err := store.SpoolUpload("../../etc/recording one.webm", strings.NewReader("audio-payload"))
	require.NoError(t, err)
	assert.Equal(t, "audio-payload", string(data))
}

func TestOpen_RejectsTraversal(t *testing.T) {
	store := newStore(t)

	for _, key := range []string{"", "../secret", "a/b", `a\b`, ".."} {
		_, _, err := store.Open(key)
		require.Error(t, err, key)
		assert.True(t, vocerr.IsNotFound(err), key)
	}
}

func TestOpen_Missing(t *testing.T) {
	store := newStore(t)

	_, _, err := store.Open("no-such-key.mp3")
	require.Error(t, err)
	assert.True(t, vocerr.HasCode(err, vocerr.CodeMediaObjectNotFound))
}
