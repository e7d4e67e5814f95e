package core

// Result status conventions used by hosts that deliver activity results.
const (
	ResultCanceled  = 0
	ResultOK        = -1
	ResultFirstUser = 1
)

// Individual grant statuses as reported by a permission prompt.
const (
	PermissionGranted = 0
	PermissionDenied  = -1
)

type ActivityResult struct {
	ResultCode int
	// Data is nil when the result carried no payload.
	Data []byte
}

func (r ActivityResult) OK() bool {
	return r.ResultCode == ResultOK
}

func (r ActivityResult) Canceled() bool {
	return r.ResultCode == ResultCanceled
}

func (r ActivityResult) HasData() bool {
	return r.Data != nil
}

type PermissionResult struct {
	Granted bool
}

// AllGranted reduces per-permission statuses to a single decision. Every
// status must be PermissionGranted; an empty slice counts as granted.
func AllGranted(statuses []int) bool {
	for _, status := range statuses {
		if status != PermissionGranted {
			return false
		}
	}
	return true
}
