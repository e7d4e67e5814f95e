package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[DeliverActivityResultMessage]   = (*DeliverActivityResultCommand)(nil)
	_ gocmd.Commander[DeliverPermissionResultMessage] = (*DeliverPermissionResultCommand)(nil)
	_ gocmd.Commander[ReclaimCodeMessage]             = (*ReclaimCodeCommand)(nil)
)
