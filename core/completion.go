package core

import "sync/atomic"

// Callback receives the outcome of an asynchronous boundary operation. payload
// is empty unless code is CodeSuccess.
type Callback func(code ErrorCode, payload string)

// Completion is a one-shot wrapper around a Callback. Complete consumes the
// callback; any later call is a no-op and reports false.
type Completion struct {
	fn atomic.Pointer[Callback]
}

func NewCompletion(cb Callback) *Completion {
	c := &Completion{}
	if cb != nil {
		c.fn.Store(&cb)
	}
	return c
}

func (c *Completion) Complete(code ErrorCode, payload string) bool {
	fn := c.Take()
	if fn == nil {
		return false
	}
	fn(code, payload)
	return true
}

// Take consumes the callback without invoking it. Only the first caller gets a
// non-nil function.
func (c *Completion) Take() Callback {
	if c == nil {
		return nil
	}
	fn := c.fn.Swap(nil)
	if fn == nil {
		return nil
	}
	return *fn
}

// Pending reports whether the callback has not fired yet.
func (c *Completion) Pending() bool {
	return c != nil && c.fn.Load() != nil
}
