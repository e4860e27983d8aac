// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package server_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vocalis-dev/vocalis/internal/media"
	"github.com/vocalis-dev/vocalis/internal/relay"
	"github.com/vocalis-dev/vocalis/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	speakOut relay.Outcome
	echoOut  relay.Outcome
	chatOut  relay.Outcome

	gotText    string
	gotAudio   []byte
	gotSession string

	speakCalls int
	echoCalls  int
	chatCalls  int
}

func (s *stubRelay) Speak(_ context.Context, text string) relay.Outcome {
	s.speakCalls++
	s.gotText = text
	return s.speakOut
}

func (s *stubRelay) Echo(_ context.Context, audio []byte) relay.Outcome {
	s.echoCalls++
	s.gotAudio = audio
	return s.echoOut
}

func (s *stubRelay) Converse(_ context.Context, sessionID string, audio []byte) relay.Outcome {
	s.chatCalls++
	s.gotSession = sessionID
	s.gotAudio = audio
	return s.chatOut
}

func newTestServer(t *testing.T, rel server.Relay) (*server.Server, *media.Store) {
	t.Helper()

	store, err := media.NewStore(t.TempDir(), "")
	require.NoError(t, err)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, rel, store)
	require.NoError(t, err)
	return srv, store
}

// multipartUpload builds a multipart body with one file field.
func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestNew_Validation(t *testing.T) {
	store, err := media.NewStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = server.New(server.Config{}, &stubRelay{}, store)
	assert.Error(t, err, "missing listen address")

	_, err = server.New(server.Config{ListenAddr: "127.0.0.1:0"}, nil, store)
	assert.Error(t, err, "missing relay")

	_, err = server.New(server.Config{ListenAddr: "127.0.0.1:0"}, &stubRelay{}, nil)
	assert.Error(t, err, "missing media store")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubRelay{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexAndStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, &stubRelay{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Vocalis")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploadAudio")
}

func TestOpenAPIDocumentsRelayRoutes(t *testing.T) {
	srv, _ := newTestServer(t, &stubRelay{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/generate-audio")
	assert.Contains(t, body, "/tts/echo")
	assert.Contains(t, body, "/agent/chat/{sessionID}")
}

func TestMedia_RoundTrip(t *testing.T) {
	srv, store := newTestServer(t, &stubRelay{})

	url, err := store.PutAudio("audio/mpeg", []byte("mp3-bytes"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
}

func TestMedia_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubRelay{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/no-such-key.mp3", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"media not found"}`, rec.Body.String())
}
