package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorCode is the stable numeric result of every boundary call. The code is
// intentionally lossy; the full detail of the latest failure is available
// through Service.LastError.
type ErrorCode int

const (
	CodeSuccess              ErrorCode = 0
	CodeConfig               ErrorCode = 1
	CodeConnection           ErrorCode = 2
	CodeFileSystem           ErrorCode = 3
	CodeInput                ErrorCode = 4
	CodeResource             ErrorCode = 5
	CodeUnavailable          ErrorCode = 6
	CodeUnexpected           ErrorCode = 7
	CodeIncompatible         ErrorCode = 8
	CodeUnknownPoolHandle    ErrorCode = 10
	CodeUnknownRequestHandle ErrorCode = 11
	CodePoolNoConsensus      ErrorCode = 30
	CodePoolRequestFailed    ErrorCode = 31
	CodePoolTimeout          ErrorCode = 32
)

const (
	TextCodeConfig               = "POOL_CONFIG"
	TextCodeConnection           = "POOL_CONNECTION"
	TextCodeFileSystem           = "POOL_FILESYSTEM"
	TextCodeInput                = "POOL_INPUT"
	TextCodeResource             = "POOL_RESOURCE"
	TextCodeUnavailable          = "POOL_UNAVAILABLE"
	TextCodeUnexpected           = "POOL_UNEXPECTED"
	TextCodeIncompatible         = "POOL_INCOMPATIBLE"
	TextCodeUnknownPoolHandle    = "POOL_UNKNOWN_POOL_HANDLE"
	TextCodeUnknownRequestHandle = "POOL_UNKNOWN_REQUEST_HANDLE"
	TextCodeNoConsensus          = "POOL_NO_CONSENSUS"
	TextCodeRequestFailed        = "POOL_REQUEST_FAILED"
	TextCodeTimeout              = "POOL_TIMEOUT"
)

var codeTextCodes = map[ErrorCode]string{
	CodeConfig:               TextCodeConfig,
	CodeConnection:           TextCodeConnection,
	CodeFileSystem:           TextCodeFileSystem,
	CodeInput:                TextCodeInput,
	CodeResource:             TextCodeResource,
	CodeUnavailable:          TextCodeUnavailable,
	CodeUnexpected:           TextCodeUnexpected,
	CodeIncompatible:         TextCodeIncompatible,
	CodeUnknownPoolHandle:    TextCodeUnknownPoolHandle,
	CodeUnknownRequestHandle: TextCodeUnknownRequestHandle,
	CodePoolNoConsensus:      TextCodeNoConsensus,
	CodePoolRequestFailed:    TextCodeRequestFailed,
	CodePoolTimeout:          TextCodeTimeout,
}

func (c ErrorCode) TextCode() string {
	if c == CodeSuccess {
		return "SUCCESS"
	}
	if text, ok := codeTextCodes[c]; ok {
		return text
	}
	return TextCodeUnexpected
}

func (c ErrorCode) String() string {
	return fmt.Sprintf("%d(%s)", int(c), c.TextCode())
}

// Category returns the go-errors category used for envelopes of this code.
func (c ErrorCode) Category() goerrors.Category {
	switch c {
	case CodeInput:
		return goerrors.CategoryBadInput
	case CodeConfig, CodeIncompatible:
		return goerrors.CategoryValidation
	case CodeUnknownPoolHandle, CodeUnknownRequestHandle:
		return goerrors.CategoryNotFound
	case CodeConnection, CodeUnavailable, CodePoolNoConsensus, CodePoolTimeout:
		return goerrors.CategoryExternal
	case CodeFileSystem, CodeResource, CodePoolRequestFailed:
		return goerrors.CategoryOperation
	default:
		return goerrors.CategoryInternal
	}
}

// CodeFromTextCode reverses TextCode for envelopes that already carry one of
// the pool text codes.
func CodeFromTextCode(text string) (ErrorCode, bool) {
	text = strings.TrimSpace(text)
	for code, candidate := range codeTextCodes {
		if candidate == text {
			return code, true
		}
	}
	return CodeUnexpected, false
}

type ErrorKind string

const (
	KindConfig        ErrorKind = "config"
	KindConnection    ErrorKind = "connection"
	KindFileSystem    ErrorKind = "filesystem"
	KindInput         ErrorKind = "input"
	KindResource      ErrorKind = "resource"
	KindUnavailable   ErrorKind = "unavailable"
	KindUnexpected    ErrorKind = "unexpected"
	KindIncompatible  ErrorKind = "incompatible"
	KindNoConsensus   ErrorKind = "no_consensus"
	KindRequestFailed ErrorKind = "request_failed"
	KindTimeout       ErrorKind = "timeout"
)

var kindCodes = map[ErrorKind]ErrorCode{
	KindConfig:        CodeConfig,
	KindConnection:    CodeConnection,
	KindFileSystem:    CodeFileSystem,
	KindInput:         CodeInput,
	KindResource:      CodeResource,
	KindUnavailable:   CodeUnavailable,
	KindUnexpected:    CodeUnexpected,
	KindIncompatible:  CodeIncompatible,
	KindNoConsensus:   CodePoolNoConsensus,
	KindRequestFailed: CodePoolRequestFailed,
	KindTimeout:       CodePoolTimeout,
}

// PoolError is the failure type engines report to the core.
type PoolError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func NewPoolError(kind ErrorKind, message string, args ...any) *PoolError {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &PoolError{Kind: kind, Message: message}
}

func WrapPoolError(cause error, kind ErrorKind, message string) *PoolError {
	return &PoolError{Kind: kind, Message: message, Cause: cause}
}

func (e *PoolError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *PoolError) Unwrap() error {
	return e.Cause
}

// Code returns the boundary code for the error kind.
func (e *PoolError) Code() ErrorCode {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return CodeUnexpected
}

func inputError(message string, args ...any) error {
	return NewPoolError(KindInput, message, args...)
}

// Translator maps any error onto the closed ErrorCode set and records the full
// detail in a LastErrorSlot.
type Translator struct {
	slot *LastErrorSlot
}

func NewTranslator(slot *LastErrorSlot) *Translator {
	return &Translator{slot: slot}
}

// Translate is total: every non-nil error produces a non-success code. A nil
// error yields CodeSuccess and leaves the slot untouched.
func (t *Translator) Translate(err error) (ErrorCode, *goerrors.Error) {
	if err == nil {
		return CodeSuccess, nil
	}
	code := ClassifyError(err)
	detail := newErrorDetail(err, code)
	if t != nil && t.slot != nil {
		t.slot.Set(detail)
	}
	return code, detail
}

// ClassifyError picks the boundary code for err without side effects.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}

	var unknown *UnknownHandleError
	if errors.As(err, &unknown) {
		if unknown.Kind == HandleKindRequest {
			return CodeUnknownRequestHandle
		}
		return CodeUnknownPoolHandle
	}

	var poolErr *PoolError
	if errors.As(err, &poolErr) {
		return poolErr.Code()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodePoolTimeout
	case errors.Is(err, context.Canceled):
		return CodeUnavailable
	case errors.Is(err, ErrDuplicateHandle):
		return CodeUnexpected
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return CodeFileSystem
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return CodeInput
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if code, ok := CodeFromTextCode(richErr.TextCode); ok {
			return code
		}
		return codeForCategory(richErr.Category)
	}

	return CodeUnexpected
}

func codeForCategory(category goerrors.Category) ErrorCode {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CodeInput
	case goerrors.CategoryNotFound, goerrors.CategoryConflict:
		return CodeResource
	case goerrors.CategoryRateLimit:
		return CodeUnavailable
	case goerrors.CategoryExternal:
		return CodeConnection
	case goerrors.CategoryOperation:
		return CodePoolRequestFailed
	default:
		return CodeUnexpected
	}
}

func newErrorDetail(err error, code ErrorCode) *goerrors.Error {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = "an unexpected error occurred"
	}
	metadata := map[string]any{
		"error_code": int(code),
	}
	var poolErr *PoolError
	if errors.As(err, &poolErr) {
		metadata["kind"] = string(poolErr.Kind)
	}
	var unknown *UnknownHandleError
	if errors.As(err, &unknown) {
		metadata["handle_kind"] = unknown.Kind
		metadata["handle"] = unknown.Handle
	}
	detail := goerrors.Wrap(err, code.Category(), message).
		WithCode(int(code)).
		WithTextCode(code.TextCode())
	detail.Message = message
	detail.WithMetadata(metadata)
	return detail
}
