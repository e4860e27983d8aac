// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package secrets

// Store provides secure secret storage operations.
// Implementations may use OS keyrings, encrypted files, or other backends.
type Store interface {
	// Retrieve fetches the secret value for the given service and key.
	// Returns a secret.get.not_found error if the key does not exist.
	Retrieve(service, key string) (string, error)
}
