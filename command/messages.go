package command

import (
	"strings"

	"github.com/goliatone/go-dispatcher/core"
)

const (
	TypeDeliverActivityResult   = "dispatcher.command.activity_result.deliver"
	TypeDeliverPermissionResult = "dispatcher.command.permission_result.deliver"
	TypeReclaimCode             = "dispatcher.command.code.reclaim"
)

// DeliverActivityResultMessage carries a host activity result. Codes that
// were never issued, or were already delivered, are misses rather than
// validation failures: hosts route every result through the same entry
// point, including codes owned by other components.
type DeliverActivityResultMessage struct {
	Code       int
	ResultCode int
	Data       []byte
}

func (DeliverActivityResultMessage) Type() string { return TypeDeliverActivityResult }

func (m DeliverActivityResultMessage) Validate() error {
	return nil
}

// DeliverPermissionResultMessage resolves a permission request. A non-nil
// GrantResults, empty included, is reduced with core.AllGranted and Granted
// is ignored.
type DeliverPermissionResultMessage struct {
	Code         int
	Granted      bool
	GrantResults []int
}

func (DeliverPermissionResultMessage) Type() string { return TypeDeliverPermissionResult }

func (m DeliverPermissionResultMessage) Validate() error {
	return nil
}

func (m DeliverPermissionResultMessage) granted() bool {
	if m.GrantResults != nil {
		return core.AllGranted(m.GrantResults)
	}
	return m.Granted
}

type ReclaimCodeMessage struct {
	Space string
	Code  int
}

func (ReclaimCodeMessage) Type() string { return TypeReclaimCode }

func (m ReclaimCodeMessage) Validate() error {
	if strings.TrimSpace(m.Space) == "" {
		return commandValidationError("space", "space is required")
	}
	if m.Code < 0 {
		return commandValidationError("code", "code must be >= 0")
	}
	return nil
}
