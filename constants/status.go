package constants

import "strings"

// MovementStatus is the lifecycle state of a persisted movement.
type MovementStatus string

// Stable values (store these exact strings in DB).
const (
	StatusActive    MovementStatus = "vigente"   // counted in certificates
	StatusPending   MovementStatus = "pendiente" // awaiting review
	StatusCancelled MovementStatus = "anulado"
)

// ParseMovementStatus defaults to pending for blank input.
func ParseMovementStatus(input string) (MovementStatus, bool) {
	switch MovementStatus(strings.ToLower(strings.TrimSpace(input))) {
	case "":
		return StatusPending, true
	case StatusActive:
		return StatusActive, true
	case StatusPending:
		return StatusPending, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return StatusPending, false
}
