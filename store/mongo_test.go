package store

import (
	"reflect"
	"regexp"
	"testing"
)

// A point write below a record leaves two documents under the prefix:
// the whole record and the child. The read must see the record with
// the child value overlaid, not the child alone.
func TestMergeNodeChildOverlaysRecord(t *testing.T) {
	tests := []struct {
		name     string
		exact    any
		child    any
		expected any
	}{
		{
			name:     "child field updates record",
			exact:    map[string]any{"id": "u1", "name": "Alice", "photo": "p.png"},
			child:    map[string]any{"name": "Alicia"},
			expected: map[string]any{"id": "u1", "name": "Alicia", "photo": "p.png"},
		},
		{
			name:     "new child field added to record",
			exact:    map[string]any{"id": "u1", "name": "Alice"},
			child:    map[string]any{"status": "busy", "lastSeen": float64(100)},
			expected: map[string]any{"id": "u1", "name": "Alice", "status": "busy", "lastSeen": float64(100)},
		},
		{
			name:     "nested maps merge recursively",
			exact:    map[string]any{"a": map[string]any{"b": float64(1)}},
			child:    map[string]any{"a": map[string]any{"c": float64(2)}},
			expected: map[string]any{"a": map[string]any{"b": float64(1), "c": float64(2)}},
		},
		{
			name:     "child shadows scalar record",
			exact:    "old",
			child:    map[string]any{"k": "v"},
			expected: map[string]any{"k": "v"},
		},
		{
			name:     "scalar child shadows map field",
			exact:    map[string]any{"k": map[string]any{"x": float64(1)}},
			child:    map[string]any{"k": "flat"},
			expected: map[string]any{"k": "flat"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mergeNode(test.exact, test.child)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("mergeNode = %v; want %v", got, test.expected)
			}
		})
	}
}

func TestInsertBuildsNestedMap(t *testing.T) {
	node := make(map[string]any)
	insert(node, []string{"a", "b", "c"}, "v1")
	insert(node, []string{"a", "d"}, "v2")

	expected := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "v1"},
			"d": "v2",
		},
	}
	if !reflect.DeepEqual(node, expected) {
		t.Errorf("insert built %v; want %v", node, expected)
	}
}

func TestPrefixFilterAnchors(t *testing.T) {
	pattern := prefixFilter("usersData/u1").Pattern

	tests := []struct {
		id    string
		match bool
	}{
		{"usersData/u1", true},
		{"usersData/u1/name", true},
		{"usersData/u10", false},
		{"usersData/u1x/name", false},
	}
	re := regexp.MustCompile(pattern)
	for _, test := range tests {
		if got := re.MatchString(test.id); got != test.match {
			t.Errorf("pattern %q against %q = %v; want %v", pattern, test.id, got, test.match)
		}
	}
}
