package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DispatchErrorBadInput       = "DISPATCH_BAD_INPUT"
	DispatchErrorSpaceExhausted = "DISPATCH_SPACE_EXHAUSTED"
	DispatchErrorSpaceNotFound  = "DISPATCH_SPACE_NOT_FOUND"
	DispatchErrorInternal       = "DISPATCH_INTERNAL"
)

var (
	ErrSpaceExhausted = errors.New("core: correlation space exhausted")
	ErrUnknownSpace   = errors.New("core: correlation space not found")
	ErrInvalidBound   = errors.New("core: correlation space bound must be positive")
)

type SpaceExhaustedError struct {
	Space string
	Bound int
}

func (e *SpaceExhaustedError) Error() string {
	if e == nil {
		return ErrSpaceExhausted.Error()
	}
	return fmt.Sprintf("%s: %s has no free code below %d", ErrSpaceExhausted.Error(), e.Space, e.Bound)
}

func (e *SpaceExhaustedError) Unwrap() error {
	return ErrSpaceExhausted
}

func (e *SpaceExhaustedError) ToDispatchError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return goerrors.Wrap(e, goerrors.CategoryOperation, "core: no free request code").
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(DispatchErrorSpaceExhausted).
		WithMetadata(map[string]any{
			"space": e.Space,
			"bound": e.Bound,
		})
}

type UnknownSpaceError struct {
	Space string
}

func (e *UnknownSpaceError) Error() string {
	if e == nil {
		return ErrUnknownSpace.Error()
	}
	return fmt.Sprintf("%s: %q", ErrUnknownSpace.Error(), e.Space)
}

func (e *UnknownSpaceError) Unwrap() error {
	return ErrUnknownSpace
}

func (e *UnknownSpaceError) ToDispatchError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return goerrors.Wrap(e, goerrors.CategoryNotFound, "core: unknown correlation space").
		WithCode(http.StatusNotFound).
		WithTextCode(DispatchErrorSpaceNotFound).
		WithMetadata(map[string]any{"space": e.Space})
}

func dispatchErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureDispatchErrorEnvelope(richErr)
	}
	var exhausted *SpaceExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.ToDispatchError()
	}
	var unknown *UnknownSpaceError
	if errors.As(err, &unknown) {
		return unknown.ToDispatchError()
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case errors.Is(err, ErrSpaceExhausted), strings.Contains(msg, ErrSpaceExhausted.Error()):
		return newDispatchError(err, goerrors.CategoryOperation, DispatchErrorSpaceExhausted)
	case errors.Is(err, ErrUnknownSpace):
		return newDispatchError(err, goerrors.CategoryNotFound, DispatchErrorSpaceNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return newDispatchError(err, goerrors.CategoryBadInput, DispatchErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureDispatchErrorEnvelope(mapped)
}

func newDispatchError(err error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureDispatchErrorEnvelope(
		goerrors.Wrap(err, category, err.Error()).
			WithTextCode(textCode),
	)
}

func ensureDispatchErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = dispatchHTTPStatus(err.Category, err.TextCode)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultDispatchTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

// defaultDispatchTextCode fills the text code of errors that did not set
// one. DispatchErrorSpaceExhausted is only ever set explicitly, by
// SpaceExhaustedError or the ErrSpaceExhausted sentinel.
func defaultDispatchTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return DispatchErrorBadInput
	case goerrors.CategoryNotFound:
		return DispatchErrorSpaceNotFound
	default:
		return DispatchErrorInternal
	}
}

func dispatchHTTPStatus(category goerrors.Category, textCode string) int {
	if textCode == DispatchErrorSpaceExhausted {
		return http.StatusServiceUnavailable
	}
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func badInputError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(DispatchErrorBadInput)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
