package command

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vdrpool/core"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(int(core.CodeUnexpected)).
		WithTextCode(core.TextCodeUnexpected)
}

func commandValidationError(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(int(core.CodeInput)).
		WithTextCode(core.TextCodeInput).
		WithSeverity(goerrors.SeverityError)
}

// codeError turns a non-success boundary code into an envelope. detail is the
// service's last error JSON, if any.
func codeError(operation string, code core.ErrorCode, detail string) error {
	message := "command: " + operation + " failed with " + code.TextCode()
	err := goerrors.New(message, code.Category()).
		WithCode(int(code)).
		WithTextCode(code.TextCode())
	if detail = strings.TrimSpace(detail); detail != "" {
		err = err.WithMetadata(map[string]any{"last_error": detail})
	}
	return err
}

// CodeFromError recovers the boundary code from an error returned by a
// command. Errors without a pool text code map to core.CodeUnexpected.
func CodeFromError(err error) core.ErrorCode {
	if err == nil {
		return core.CodeSuccess
	}
	return core.ClassifyError(err)
}
