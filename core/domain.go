package core

import "time"

const (
	SpaceActivity   = "activity"
	SpacePermission = "permission"
)

const (
	// ActivitySpaceBound keeps activity request codes within an unsigned
	// 16-bit value, as host frameworks require for result request codes.
	ActivitySpaceBound = 1 << 16
	// PermissionSpaceBound keeps permission request codes within 8 bits.
	PermissionSpaceBound = 1 << 8
)

type SpaceStats struct {
	Space   string
	Bound   int
	Pending int
}

type DeliveryOutcome struct {
	Space     string
	Code      int
	Delivered bool
}

// Delivery is the transport-neutral form of an inbound result. Adapters
// decode their wire shape into a Delivery and hand it to Service.Deliver.
type Delivery struct {
	Space      string
	Code       int
	ResultCode int
	Data       []byte
	// Granted is used when GrantResults is nil. An empty, non-nil
	// GrantResults reduces to granted.
	Granted      bool
	GrantResults []int
}

type ActivityAction string

const (
	ActivityActionRegister  ActivityAction = "register"
	ActivityActionDeliver   ActivityAction = "deliver"
	ActivityActionMiss      ActivityAction = "miss"
	ActivityActionReclaim   ActivityAction = "reclaim"
	ActivityActionExhausted ActivityAction = "exhausted"
	ActivityActionPanic     ActivityAction = "panic"
)

type ActivityStatus string

const (
	ActivityStatusOK    ActivityStatus = "ok"
	ActivityStatusWarn  ActivityStatus = "warn"
	ActivityStatusError ActivityStatus = "error"
)

type ActivityEntry struct {
	ID        string
	Space     string
	Code      int
	Action    ActivityAction
	Status    ActivityStatus
	Metadata  map[string]any
	CreatedAt time.Time
}

type ActivityFilter struct {
	Space   string
	Action  ActivityAction
	Status  ActivityStatus
	Code    *int
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

type ActivityPage struct {
	Items      []ActivityEntry
	Page       int
	PerPage    int
	Total      int
	HasNext    bool
	NextCursor string
}

type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}
