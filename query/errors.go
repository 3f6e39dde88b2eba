package query

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vdrpool/core"
)

func queryDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(int(core.CodeUnexpected)).
		WithTextCode(core.TextCodeUnexpected)
}

func queryValidationError(field string, message string) error {
	return goerrors.NewValidation("query: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(int(core.CodeInput)).
		WithTextCode(core.TextCodeInput).
		WithSeverity(goerrors.SeverityError)
}
