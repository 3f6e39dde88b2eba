package core

import (
	"strconv"
	"sync/atomic"
)

// PoolHandle identifies a pool registered with a Service.
type PoolHandle uint64

// RequestHandle identifies a prepared request awaiting submission.
type RequestHandle uint64

func (h PoolHandle) String() string { return strconv.FormatUint(uint64(h), 10) }

func (h RequestHandle) String() string { return strconv.FormatUint(uint64(h), 10) }

// HandleCounter hands out monotonically increasing values starting at 1.
// Values are never reused, even after the entry they named is removed.
type HandleCounter struct {
	last atomic.Uint64
}

func (c *HandleCounter) Next() uint64 {
	return c.last.Add(1)
}

// Peek returns the most recently issued value, or 0 when none was issued.
func (c *HandleCounter) Peek() uint64 {
	return c.last.Load()
}

var (
	poolHandles    HandleCounter
	requestHandles HandleCounter
)

// NextPoolHandle allocates a process-wide unique pool handle.
func NextPoolHandle() PoolHandle {
	return PoolHandle(poolHandles.Next())
}

// NextRequestHandle allocates a process-wide unique request handle. Request
// handles come from a counter independent of pool handles.
func NextRequestHandle() RequestHandle {
	return RequestHandle(requestHandles.Next())
}
