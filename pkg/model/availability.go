package model

import "fmt"

// AvailabilityState says whether the runtime can serve requests.
type AvailabilityState string

const (
	StateAvailable   AvailabilityState = "available"
	StateUnavailable AvailabilityState = "unavailable"
)

// UnavailableReason explains an unavailable runtime.
type UnavailableReason string

const (
	ReasonDeviceIneligible UnavailableReason = "device_ineligible"
	ReasonFeatureDisabled  UnavailableReason = "feature_disabled"
	ReasonAssetsNotReady   UnavailableReason = "assets_not_ready"
	ReasonUnknown          UnavailableReason = "unknown"
)

// Availability is a tagged result: Reason is meaningful only when the
// state is unavailable.
type Availability struct {
	State  AvailabilityState
	Reason UnavailableReason
}

// Available reports whether the runtime can be used.
func (a Availability) Available() bool { return a.State == StateAvailable }

func (a Availability) String() string {
	if a.Available() {
		return string(StateAvailable)
	}
	return fmt.Sprintf("%s (%s)", a.State, a.Reason)
}

// MarkAvailable is the available singleton value.
func MarkAvailable() Availability {
	return Availability{State: StateAvailable}
}

// MarkUnavailable tags an unavailable state with its reason.
func MarkUnavailable(reason UnavailableReason) Availability {
	return Availability{State: StateUnavailable, Reason: reason}
}
