package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Gatekeeper outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBlocked            = errors.New("source address is blocked")
)

// BlockReason distinguishes a pre-existing block from one written by the current request.
type BlockReason int

const (
	// BlockReasonActive means an unexpired block record already existed.
	BlockReasonActive BlockReason = iota
	// BlockReasonThreshold means this request pushed the failure count over the limit.
	BlockReasonThreshold
)

func (r BlockReason) String() string {
	switch r {
	case BlockReasonActive:
		return "active_block"
	case BlockReasonThreshold:
		return "failure_threshold"
	default:
		return "unknown"
	}
}

// BlockedError carries the block expiry back to the transport layer.
type BlockedError struct {
	Until  time.Time
	Reason BlockReason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s until %s (%s)", ErrBlocked, e.Until.UTC().Format(time.RFC3339), e.Reason)
}

// Is lets errors.Is(err, ErrBlocked) match.
func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}
