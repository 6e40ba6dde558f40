package protocol

import (
	"errors"

	"bidengine.ai/internal/sim/community"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadPhase        = "E_BAD_PHASE"

	// Snapshot boundary.
	ErrDimensionMismatch = "E_DIMENSION_MISMATCH"
	ErrUnknownAgent      = "E_UNKNOWN_AGENT"
	ErrDuplicateAgent    = "E_DUPLICATE_AGENT"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBadPhase:          {},
	ErrDimensionMismatch: {},
	ErrUnknownAgent:      {},
	ErrDuplicateAgent:    {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps an engine error onto its wire code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, community.ErrDimensionMismatch):
		return ErrDimensionMismatch
	case errors.Is(err, community.ErrUnknownAgent):
		return ErrUnknownAgent
	case errors.Is(err, community.ErrDuplicateAgent):
		return ErrDuplicateAgent
	default:
		return ErrInternal
	}
}
