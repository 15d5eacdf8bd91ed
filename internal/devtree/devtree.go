// Package devtree provides the path-addressed configuration tree the
// driver reads frontend wiring descriptors from and persists channel
// mappings into. The Store interface is the boundary to whatever backs
// the tree; Tree is the in-memory implementation used by the daemon and
// by tests.
package devtree

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoValue indicates there is no value of the requested type at a
// tree path.
var ErrNoValue = errors.New("no value at tree path")

// Store is the typed, path-addressed access contract of the
// configuration tree.
type Store interface {
	Has(path string) bool
	String(path string) (string, error)
	SetString(path, value string)
	IntVec(path string) ([]int, error)
	SetIntVec(path string, value []int)
}

// Join builds a tree path from components, in the "/a/b/c" form.
func Join(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}

// Tree is a concurrency-safe in-memory Store.
type Tree struct {
	mu      sync.RWMutex
	strings map[string]string
	intVecs map[string][]int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		strings: make(map[string]string),
		intVecs: make(map[string][]int),
	}
}

// Has reports whether any value is stored at path.
func (t *Tree) Has(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.strings[path]; ok {
		return true
	}
	_, ok := t.intVecs[path]
	return ok
}

// String returns the string value stored at path.
func (t *Tree) String(path string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.strings[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoValue, path)
	}
	return v, nil
}

// SetString stores a string value at path, replacing any prior value.
func (t *Tree) SetString(path, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strings[path] = value
}

// IntVec returns a copy of the index vector stored at path.
func (t *Tree) IntVec(path string) ([]int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.intVecs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoValue, path)
	}
	out := make([]int, len(v))
	copy(out, v)
	return out, nil
}

// SetIntVec stores a copy of the index vector at path.
func (t *Tree) SetIntVec(path string, value []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := make([]int, len(value))
	copy(v, value)
	t.intVecs[path] = v
}
