// Package store abstracts the realtime, path-addressed key-value tree
// that holds all chat state. Three backends implement the same Tree
// interface: Firebase Realtime Database, MongoDB, and an in-memory
// tree used by tests.
package store

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidPath = errors.New("store: invalid path")

// Tree is a hierarchical key-value store with point writes, subtree
// reads and subtree change subscriptions.
type Tree interface {
	// Get decodes the subtree at path into v. A missing path leaves v
	// at its zero value and returns no error.
	Get(ctx context.Context, path string, v any) error

	// Set replaces the subtree at path with v.
	Set(ctx context.Context, path string, v any) error

	// Push appends v under path with a store-generated push id and
	// returns the id. Push ids sort lexicographically in insertion
	// order.
	Push(ctx context.Context, path string, v any) (string, error)

	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error

	// Watch delivers a (coalesced) notification whenever anything at
	// or under path changes. The channel is closed when ctx is
	// cancelled. Watchers re-read the subtree via Get; no diff is
	// delivered.
	Watch(ctx context.Context, path string) (<-chan struct{}, error)
}

// splitPath turns "/userChatList/u1/c1" into its non-empty segments.
// Paths are absolute; a missing leading slash is an error.
func splitPath(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, ErrInvalidPath
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" {
			return nil, ErrInvalidPath
		}
	}
	return segments, nil
}

// isPrefix reports whether the segment list a is an ancestor of (or
// equal to) b.
func isPrefix(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
