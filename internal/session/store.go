// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package session holds per-session conversation history. Sessions are
// keyed by an opaque caller-supplied identifier, created lazily on first
// reference, and live for the process lifetime. There is no eviction and
// no cap on turn count: history grows monotonically, and the generator
// prompt grows with it. That is an accepted property of the design, not
// an oversight.
package session

import (
	"context"
	"strings"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one utterance in a conversation. Immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store maps session identifiers to ordered turn sequences.
//
// Append is order-preserving; History returns the full sequence in
// insertion order. Implementations must be safe for concurrent use and
// must serialize appends to the same session so overlapping requests
// cannot lose writes.
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Len(ctx context.Context, sessionID string) (int, error)
	Close() error
}

// Flatten renders turns as "role: content" lines in insertion order.
// The result is sent to the generator verbatim: no reordering, no
// truncation, no deduplication.
func Flatten(turns []Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}
