// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package secrets

import (
	"os"
	"strings"

	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

const (
	keyringScheme = "keyring://"
	envScheme     = "env:"
)

// IsRef reports whether value is an indirect secret reference
// (keyring:// or env:) rather than a literal credential.
func IsRef(value string) bool {
	return strings.HasPrefix(value, keyringScheme) || strings.HasPrefix(value, envScheme)
}

// ParseKeyringRef extracts service and key from a keyring://service/key URI.
// Returns an error if the URI is malformed.
func ParseKeyringRef(uri string) (service, key string, err error) {
	if !strings.HasPrefix(uri, keyringScheme) {
		return "", "", vocerr.Errorf(vocerr.CodeSecretRefInvalid, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", vocerr.Errorf(vocerr.CodeSecretRefInvalid,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// Resolve turns a credential value into its secret. Literal values pass
// through unchanged; env:NAME reads the environment; keyring://service/key
// reads the OS keyring through store.
//
// An env: ref naming an unset variable resolves to the empty string, which
// callers treat the same as an absent credential (provider disabled).
func Resolve(store Store, value string) (string, error) {
	switch {
	case strings.HasPrefix(value, envScheme):
		name := strings.TrimPrefix(value, envScheme)
		if name == "" {
			return "", vocerr.Errorf(vocerr.CodeSecretRefInvalid, "invalid env ref %q: expected env:NAME", value)
		}
		return os.Getenv(name), nil

	case strings.HasPrefix(value, keyringScheme):
		service, key, err := ParseKeyringRef(value)
		if err != nil {
			return "", err
		}
		secret, err := store.Retrieve(service, key)
		if err != nil {
			return "", vocerr.Wrapf(err, vocerr.CodeSecretResolveFailure, "resolving keyring ref %q", value)
		}
		return secret, nil

	default:
		return value, nil
	}
}
