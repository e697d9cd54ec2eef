package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryTree is an in-process Tree. It keeps values in their JSON
// shape (maps, strings, float64) so Get behaves like the remote
// backends: decode through encoding/json into whatever the caller
// passes.
type MemoryTree struct {
	mu       sync.RWMutex
	root     map[string]any
	watchers map[int]*memWatcher
	nextID   int
}

type memWatcher struct {
	segments []string
	notify   chan struct{}
}

func NewMemoryTree() *MemoryTree {
	return &MemoryTree{
		root:     make(map[string]any),
		watchers: make(map[int]*memWatcher),
	}
}

func (t *MemoryTree) Get(ctx context.Context, path string, v any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	t.mu.RLock()
	node := lookup(t.root, segments)
	raw, err := json.Marshal(node)
	t.mu.RUnlock()
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (t *MemoryTree) Set(ctx context.Context, path string, v any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(v)
	if err != nil {
		return err
	}

	t.mu.Lock()
	parent := t.root
	for _, s := range segments[:len(segments)-1] {
		child, ok := parent[s].(map[string]any)
		if !ok {
			child = make(map[string]any)
			parent[s] = child
		}
		parent = child
	}
	leaf := segments[len(segments)-1]
	if normalized == nil {
		delete(parent, leaf)
	} else {
		parent[leaf] = normalized
	}
	t.mu.Unlock()

	t.broadcast(segments)
	return nil
}

func (t *MemoryTree) Push(ctx context.Context, path string, v any) (string, error) {
	key := NewPushID(time.Now())
	if err := t.Set(ctx, path+"/"+key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (t *MemoryTree) Delete(ctx context.Context, path string) error {
	return t.Set(ctx, path, nil)
}

func (t *MemoryTree) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	w := &memWatcher{segments: segments, notify: make(chan struct{}, 1)}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.watchers[id] = w
	t.mu.Unlock()

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			t.mu.Lock()
			delete(t.watchers, id)
			t.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// broadcast wakes every watcher whose path is an ancestor or a
// descendant of the written path. Sends are non-blocking; pending
// notifications coalesce.
func (t *MemoryTree) broadcast(segments []string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, w := range t.watchers {
		if isPrefix(w.segments, segments) || isPrefix(segments, w.segments) {
			select {
			case w.notify <- struct{}{}:
			default:
			}
		}
	}
}

func lookup(node map[string]any, segments []string) any {
	var current any = node
	for _, s := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[s]
		if !ok {
			return nil
		}
	}
	return current
}

// normalize round-trips v through JSON so the tree stores the same
// shapes a remote backend would return.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
