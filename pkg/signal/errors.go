package signal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AuthError means the caller failed the shared-secret check. It is reported
// before any field validation so an unauthenticated caller learns nothing
// about which fields were wrong.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// ValidationError means the signal was authenticated but malformed. Received
// carries the parsed payload when echoing it back helps the caller debug.
type ValidationError struct {
	Reason   string
	Received map[string]string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// CapError means the requested size exceeds the configured safety limit.
type CapError struct {
	Max decimal.Decimal
}

func (e *CapError) Error() string {
	return fmt.Sprintf("order size exceeds server safety limit of %s", e.Max.String())
}
