package core

import (
	"encoding/json"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// LastErrorSlot holds the detail of the most recent translated failure.
//
// The slot is shared by every goroutine using the owning Service and is
// last-write-wins: a failure on another goroutine may overwrite it between a
// caller observing a non-success code and reading the slot. Callers that need
// a consistent value must read it immediately after the failing call, and
// should treat the detail as diagnostic text only.
type LastErrorSlot struct {
	mu     sync.RWMutex
	detail *goerrors.Error
}

func NewLastErrorSlot() *LastErrorSlot {
	return &LastErrorSlot{}
}

func (s *LastErrorSlot) Set(detail *goerrors.Error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.detail = detail
	s.mu.Unlock()
}

func (s *LastErrorSlot) Get() *goerrors.Error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail
}

func (s *LastErrorSlot) Clear() {
	s.Set(nil)
}

type lastErrorPayload struct {
	Code     int            `json:"code"`
	TextCode string         `json:"text_code"`
	Message  string         `json:"message"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// JSON renders the slot as {"code":..,"text_code":..,"message":..,"extra":..}
// or returns "" when no failure was recorded yet.
func (s *LastErrorSlot) JSON() string {
	detail := s.Get()
	if detail == nil {
		return ""
	}
	payload := lastErrorPayload{
		Code:     detail.Code,
		TextCode: detail.TextCode,
		Message:  detail.Message,
	}
	if len(detail.Metadata) > 0 {
		payload.Extra = make(map[string]any, len(detail.Metadata))
		for key, value := range detail.Metadata {
			if key == "error_code" {
				continue
			}
			payload.Extra[key] = value
		}
		if len(payload.Extra) == 0 {
			payload.Extra = nil
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return `{"code":7,"text_code":"POOL_UNEXPECTED","message":"last error is not serializable"}`
	}
	return string(raw)
}
