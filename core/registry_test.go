package core

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_InsertLookupRemove(t *testing.T) {
	registry := NewRegistry[PoolHandle, string](HandleKindPool)
	if err := registry.Insert(PoolHandle(7), "seven"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	value, err := registry.Lookup(PoolHandle(7))
	if err != nil || value != "seven" {
		t.Fatalf("lookup: got %q %v", value, err)
	}
	removed, err := registry.Remove(PoolHandle(7))
	if err != nil || removed != "seven" {
		t.Fatalf("remove: got %q %v", removed, err)
	}
	if _, err := registry.Lookup(PoolHandle(7)); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected unknown handle after remove, got %v", err)
	}
}

func TestRegistry_DuplicateInsertKeepsOriginal(t *testing.T) {
	registry := NewRegistry[RequestHandle, string](HandleKindRequest)
	if err := registry.Insert(RequestHandle(1), "first"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := registry.Insert(RequestHandle(1), "second"); !errors.Is(err, ErrDuplicateHandle) {
		t.Fatalf("expected duplicate handle error, got %v", err)
	}
	value, _ := registry.Lookup(RequestHandle(1))
	if value != "first" {
		t.Fatalf("expected original value to survive, got %q", value)
	}
}

func TestRegistry_UnknownRemoveReportsKind(t *testing.T) {
	registry := NewRegistry[RequestHandle, string](HandleKindRequest)
	_, err := registry.Remove(RequestHandle(42))
	var unknown *UnknownHandleError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownHandleError, got %T", err)
	}
	if unknown.Kind != HandleKindRequest || unknown.Handle != 42 {
		t.Fatalf("unexpected error payload %+v", unknown)
	}
	if ClassifyError(err) != CodeUnknownRequestHandle {
		t.Fatalf("expected request handle code, got %s", ClassifyError(err))
	}
}

func TestRegistry_HandlesSortedAndDrain(t *testing.T) {
	registry := NewRegistry[PoolHandle, int](HandleKindPool)
	for _, handle := range []PoolHandle{9, 3, 5} {
		if err := registry.Insert(handle, int(handle)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	handles := registry.Handles()
	want := []PoolHandle{3, 5, 9}
	for idx := range want {
		if handles[idx] != want[idx] {
			t.Fatalf("unexpected handle order %v", handles)
		}
	}
	drained := registry.Drain()
	if len(drained) != 3 || registry.Len() != 0 {
		t.Fatalf("expected drain to empty registry, drained %d left %d", len(drained), registry.Len())
	}
}

func TestRegistry_RetainRunsOnlyForLiveEntries(t *testing.T) {
	registry := NewRegistry[PoolHandle, *int](HandleKindPool)
	counter := 0
	if err := registry.Insert(PoolHandle(1), &counter); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := registry.Retain(PoolHandle(1), func(v *int) { *v++ }); err != nil {
		t.Fatalf("retain: %v", err)
	}
	if _, err := registry.Retain(PoolHandle(2), func(v *int) { *v++ }); err == nil {
		t.Fatalf("expected retain on missing handle to fail")
	}
	if counter != 1 {
		t.Fatalf("expected retain callback once, got %d", counter)
	}
}

func TestRegistry_ConcurrentInsertRemove(t *testing.T) {
	registry := NewRegistry[RequestHandle, int](HandleKindRequest)
	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				handle := NextRequestHandle()
				if err := registry.Insert(handle, i); err != nil {
					t.Errorf("insert %d: %v", handle, err)
					return
				}
				if _, err := registry.Lookup(handle); err != nil {
					t.Errorf("lookup %d: %v", handle, err)
					return
				}
				if i%2 == 0 {
					if _, err := registry.Remove(handle); err != nil {
						t.Errorf("remove %d: %v", handle, err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := registry.Len(); got != workers*perWorker/2 {
		t.Fatalf("expected %d entries, got %d", workers*perWorker/2, got)
	}
}

func TestHandleCounter_MonotonicAndNeverReused(t *testing.T) {
	var counter HandleCounter
	if counter.Peek() != 0 {
		t.Fatalf("expected fresh counter to peek 0")
	}
	seen := map[uint64]struct{}{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				value := counter.Next()
				mu.Lock()
				if _, dup := seen[value]; dup {
					t.Errorf("value %d issued twice", value)
				}
				seen[value] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if counter.Peek() != 4000 || len(seen) != 4000 {
		t.Fatalf("expected 4000 distinct values, got peek %d seen %d", counter.Peek(), len(seen))
	}
	if _, zero := seen[0]; zero {
		t.Fatalf("counter must never issue 0")
	}
}

func TestNextHandles_IndependentCounters(t *testing.T) {
	firstPool := NextPoolHandle()
	firstRequest := NextRequestHandle()
	secondPool := NextPoolHandle()
	secondRequest := NextRequestHandle()
	if secondPool <= firstPool {
		t.Fatalf("pool handles must increase: %d then %d", firstPool, secondPool)
	}
	if secondRequest <= firstRequest {
		t.Fatalf("request handles must increase: %d then %d", firstRequest, secondRequest)
	}
	if firstPool == 0 || firstRequest == 0 {
		t.Fatalf("handles must be non-zero")
	}
}
