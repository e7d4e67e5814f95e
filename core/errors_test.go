package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestDispatchErrorMapper_TypedErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		textCode string
		sentinel error
	}{
		{
			name:     "exhausted",
			err:      fmt.Errorf("register: %w", &SpaceExhaustedError{Space: SpacePermission, Bound: PermissionSpaceBound}),
			code:     http.StatusServiceUnavailable,
			textCode: DispatchErrorSpaceExhausted,
			sentinel: ErrSpaceExhausted,
		},
		{
			name:     "bare exhausted sentinel",
			err:      ErrSpaceExhausted,
			code:     http.StatusServiceUnavailable,
			textCode: DispatchErrorSpaceExhausted,
			sentinel: ErrSpaceExhausted,
		},
		{
			name:     "unknown space",
			err:      &UnknownSpaceError{Space: "camera"},
			code:     http.StatusNotFound,
			textCode: DispatchErrorSpaceNotFound,
			sentinel: ErrUnknownSpace,
		},
		{
			name:     "bad input",
			err:      errors.New("core: space is required"),
			code:     http.StatusBadRequest,
			textCode: DispatchErrorBadInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := dispatchErrorMapper(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.Code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, mapped.Code)
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("expected text code %q, got %q", tc.textCode, mapped.TextCode)
			}
			if tc.sentinel != nil && !errors.Is(mapped, tc.sentinel) {
				t.Fatalf("expected mapped error to keep %v in its chain", tc.sentinel)
			}
		})
	}
}

func TestDispatchErrorMapper_PreservesRichErrors(t *testing.T) {
	original := goerrors.New("already rich", goerrors.CategoryConflict).WithCode(http.StatusConflict)
	mapped := dispatchErrorMapper(original)
	if mapped != original {
		t.Fatalf("expected rich error to pass through")
	}
	if mapped.TextCode != DispatchErrorInternal {
		t.Fatalf("expected default text code to be filled, got %q", mapped.TextCode)
	}
}

func TestDispatchErrorMapper_UnknownErrorsAreInternal(t *testing.T) {
	mapped := dispatchErrorMapper(errors.New("disk on fire"))
	if mapped == nil || mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error mapping, got %#v", mapped)
	}
	if dispatchErrorMapper(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
}

func TestDispatchErrorMapper_GenericOperationErrorsAreNotExhaustion(t *testing.T) {
	mapped := dispatchErrorMapper(goerrors.New("activity sink unavailable", goerrors.CategoryOperation))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != DispatchErrorInternal || mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected operation failure to map to %s/500, got %q/%d", DispatchErrorInternal, mapped.TextCode, mapped.Code)
	}

	mapped = dispatchErrorMapper(errors.New("database connection pool exhausted"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode == DispatchErrorSpaceExhausted || mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected unrelated exhaustion to stay internal, got %q/%d", mapped.TextCode, mapped.Code)
	}
}

func TestDispatchErrorTextCodes(t *testing.T) {
	codes := map[string]string{
		DispatchErrorBadInput:       "DISPATCH_BAD_INPUT",
		DispatchErrorSpaceExhausted: "DISPATCH_SPACE_EXHAUSTED",
		DispatchErrorSpaceNotFound:  "DISPATCH_SPACE_NOT_FOUND",
		DispatchErrorInternal:       "DISPATCH_INTERNAL",
	}
	for got, want := range codes {
		if got != want {
			t.Fatalf("expected text code %q, got %q", want, got)
		}
	}
}

func TestSpaceExhaustedError_Message(t *testing.T) {
	err := &SpaceExhaustedError{Space: SpaceActivity, Bound: ActivitySpaceBound}
	want := "core: correlation space exhausted: activity has no free code below 65536"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
	var nilErr *SpaceExhaustedError
	if nilErr.ToDispatchError() != nil {
		t.Fatalf("expected nil envelope for nil error")
	}
}
