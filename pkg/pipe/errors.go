package pipe

import "errors"

var (
	// ErrInvalidParameter indicates a required argument was missing.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientResources indicates allocation failure or pipe-id
	// exhaustion.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrHciGateNotSupported indicates the destination gate is unknown to the
	// pipe-info dispatch.
	ErrHciGateNotSupported = errors.New("hci gate not supported")

	// ErrInvalidHciSequence indicates a sequence state or scope that cannot be
	// acted on.
	ErrInvalidHciSequence = errors.New("invalid hci sequence")

	// ErrPipeInUse indicates a registry slot is already occupied.
	ErrPipeInUse = errors.New("pipe id in use")
)
