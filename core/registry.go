package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

const (
	HandleKindPool    = "pool"
	HandleKindRequest = "request"
)

var (
	ErrUnknownHandle   = errors.New("core: unknown handle")
	ErrDuplicateHandle = errors.New("core: handle already registered")
)

// UnknownHandleError reports a lookup or removal of a handle that is not (or is
// no longer) present in a registry.
type UnknownHandleError struct {
	Kind   string
	Handle uint64
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("core: unknown %s handle %d", e.Kind, e.Handle)
}

func (e *UnknownHandleError) Is(target error) bool {
	return target == ErrUnknownHandle
}

// Registry is a concurrency safe table from handle to an owned value. Readers
// share the lock only for the duration of the map access.
type Registry[H ~uint64, V any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[H]V
}

func NewRegistry[H ~uint64, V any](kind string) *Registry[H, V] {
	return &Registry[H, V]{
		kind:    kind,
		entries: make(map[H]V),
	}
}

func (r *Registry[H, V]) Kind() string {
	if r == nil {
		return ""
	}
	return r.kind
}

// Insert stores value under handle. Handles come from a fresh allocator, so a
// collision is a programming error and never overwrites the existing entry.
func (r *Registry[H, V]) Insert(handle H, value V) error {
	if r == nil {
		return fmt.Errorf("core: %s registry is nil", r.Kind())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[handle]; exists {
		return fmt.Errorf("%w: %s %d", ErrDuplicateHandle, r.kind, uint64(handle))
	}
	r.entries[handle] = value
	return nil
}

func (r *Registry[H, V]) Lookup(handle H) (V, error) {
	return r.Retain(handle, nil)
}

// Retain looks handle up and, when found, calls fn with the value while the
// read lock is still held. fn must be short and must not call back into the
// registry; it exists so callers can pin state (for example an in-flight
// counter) atomically with respect to Remove.
func (r *Registry[H, V]) Retain(handle H, fn func(V)) (V, error) {
	var zero V
	if r == nil {
		return zero, r.unknown(handle)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.entries[handle]
	if !ok {
		return zero, r.unknown(handle)
	}
	if fn != nil {
		fn(value)
	}
	return value, nil
}

// Remove deletes handle and transfers ownership of its value to the caller.
func (r *Registry[H, V]) Remove(handle H) (V, error) {
	var zero V
	if r == nil {
		return zero, r.unknown(handle)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.entries[handle]
	if !ok {
		return zero, r.unknown(handle)
	}
	delete(r.entries, handle)
	return value, nil
}

func (r *Registry[H, V]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Handles returns the live handles in ascending order.
func (r *Registry[H, V]) Handles() []H {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	handles := make([]H, 0, len(r.entries))
	for handle := range r.entries {
		handles = append(handles, handle)
	}
	r.mu.RUnlock()
	slices.Sort(handles)
	return handles
}

// Drain removes every entry and returns the removed values keyed by handle.
func (r *Registry[H, V]) Drain() map[H]V {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = make(map[H]V)
	return out
}

func (r *Registry[H, V]) unknown(handle H) error {
	return &UnknownHandleError{Kind: r.Kind(), Handle: uint64(handle)}
}

type PoolRegistry = Registry[PoolHandle, *poolEntry]

type RequestRegistry = Registry[RequestHandle, *Request]

func NewPoolRegistry() *PoolRegistry {
	return NewRegistry[PoolHandle, *poolEntry](HandleKindPool)
}

func NewRequestRegistry() *RequestRegistry {
	return NewRegistry[RequestHandle, *Request](HandleKindRequest)
}
