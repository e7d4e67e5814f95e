package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-dispatcher/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestReclaimCodeMessage_ValidateReturnsRichError(t *testing.T) {
	cases := map[string]ReclaimCodeMessage{
		"missing space": {Code: 1},
		"negative code": {Space: core.SpaceActivity, Code: -1},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			err := msg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.Category != goerrors.CategoryValidation {
				t.Fatalf("expected validation category, got %q", rich.Category)
			}
			if rich.TextCode != core.DispatchErrorBadInput {
				t.Fatalf("expected %q text code, got %q", core.DispatchErrorBadInput, rich.TextCode)
			}
		})
	}

	if err := (ReclaimCodeMessage{Space: core.SpaceActivity, Code: 0}).Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}

func TestDeliverMessages_AlwaysValid(t *testing.T) {
	if err := (DeliverActivityResultMessage{Code: -1}).Validate(); err != nil {
		t.Fatalf("expected activity delivery to validate, got %v", err)
	}
	if err := (DeliverPermissionResultMessage{Code: 1 << 20}).Validate(); err != nil {
		t.Fatalf("expected permission delivery to validate, got %v", err)
	}
}

func TestDeliverActivityResultCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *DeliverActivityResultCommand
	err := cmd.Execute(context.Background(), DeliverActivityResultMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
