// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"

	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// KeyringStore implements Store backed by the OS keyring
// (macOS Keychain, Linux Secret Service, Windows Credential Manager).
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a Store backed by the OS keyring.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	value, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", vocerr.Errorf(vocerr.CodeSecretNotFound, "secret %s/%s not found in keyring", service, key)
		}
		return "", vocerr.Wrapf(err, vocerr.CodeSecretResolveFailure, "reading %s/%s from keyring", service, key)
	}
	return value, nil
}
