package model

import "fmt"

// UnavailableError reports that a runtime refused to host a session.
type UnavailableError struct {
	Reason UnavailableReason
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("model: runtime unavailable (%s)", e.Reason)
}
