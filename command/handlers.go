package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-dispatcher/core"
)

type DeliveryService interface {
	DeliverActivityResult(ctx context.Context, code int, resultCode int, data []byte) bool
	DeliverPermissionResult(ctx context.Context, code int, granted bool) bool
}

type ReclaimService interface {
	Reclaim(ctx context.Context, space string, code int) (bool, error)
}

type DeliverActivityResultCommand struct {
	service DeliveryService
}

func NewDeliverActivityResultCommand(service DeliveryService) *DeliverActivityResultCommand {
	return &DeliverActivityResultCommand{service: service}
}

func (c *DeliverActivityResultCommand) Execute(ctx context.Context, msg DeliverActivityResultMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: activity delivery service is required")
	}
	delivered := c.service.DeliverActivityResult(ctx, msg.Code, msg.ResultCode, msg.Data)
	storeResult(ctx, core.DeliveryOutcome{
		Space:     core.SpaceActivity,
		Code:      msg.Code,
		Delivered: delivered,
	})
	return nil
}

type DeliverPermissionResultCommand struct {
	service DeliveryService
}

func NewDeliverPermissionResultCommand(service DeliveryService) *DeliverPermissionResultCommand {
	return &DeliverPermissionResultCommand{service: service}
}

func (c *DeliverPermissionResultCommand) Execute(ctx context.Context, msg DeliverPermissionResultMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: permission delivery service is required")
	}
	delivered := c.service.DeliverPermissionResult(ctx, msg.Code, msg.granted())
	storeResult(ctx, core.DeliveryOutcome{
		Space:     core.SpacePermission,
		Code:      msg.Code,
		Delivered: delivered,
	})
	return nil
}

type ReclaimCodeCommand struct {
	service ReclaimService
}

func NewReclaimCodeCommand(service ReclaimService) *ReclaimCodeCommand {
	return &ReclaimCodeCommand{service: service}
}

func (c *ReclaimCodeCommand) Execute(ctx context.Context, msg ReclaimCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reclaim service is required")
	}
	reclaimed, err := c.service.Reclaim(ctx, msg.Space, msg.Code)
	if err != nil {
		return err
	}
	storeResult(ctx, reclaimed)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
