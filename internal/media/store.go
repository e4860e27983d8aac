// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package media provides process-lifetime scratch storage for uploaded
// audio and locally synthesized artifacts. Every object gets a unique
// key, so concurrent requests can never collide on a filename.
package media

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// Store writes and serves media objects from a local directory.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates a Store rooted at dir. An empty dir means a fresh
// per-process temp directory. baseURL prefixes returned object URLs; when
// empty, URLs are server-relative (/media/{key}).
func NewStore(dir, baseURL string) (*Store, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "vocalis-media-")
		if err != nil {
			return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "creating media temp directory")
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "creating media directory %s", dir)
	}

	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// PutAudio stores synthesized audio under a fresh key and returns the URL
// it will be served from.
func (s *Store) PutAudio(contentType string, data []byte) (string, error) {
	key := uuid.NewString() + extensionFor(contentType)

	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o600); err != nil {
		return "", vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "writing media object %s", key)
	}

	return s.baseURL + "/media/" + key, nil
}

// SpoolUpload writes an uploaded file to scratch storage under a unique
// key and reads it back, mirroring the upload-then-read flow of the
// request handlers. The original filename only decorates the scratch key.
func (s *Store) SpoolUpload(filename string, r io.Reader) ([]byte, error) {
	key := uuid.NewString() + "-" + sanitizeFilename(filename)
	path := filepath.Join(s.dir, key)

	f, err := os.Create(path)
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "creating upload scratch file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "spooling upload %s", filename)
	}
	if err := f.Close(); err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "closing upload scratch file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "reading back upload %s", filename)
	}
	return data, nil
}

// Open returns a reader and content type for a stored object. Keys are
// opaque single path segments; anything else is rejected.
func (s *Store) Open(key string) (io.ReadCloser, string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return nil, "", vocerr.Errorf(vocerr.CodeMediaObjectNotFound, "invalid media key %q", key)
	}

	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", vocerr.Errorf(vocerr.CodeMediaObjectNotFound, "media object %q not found", key)
		}
		return nil, "", vocerr.Wrapf(err, vocerr.CodeMediaStoreFailure, "opening media object %s", key)
	}

	return f, contentTypeFor(key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

func contentTypeFor(key string) string {
	switch filepath.Ext(key) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// sanitizeFilename keeps only the base name and replaces anything outside
// a conservative character set.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
