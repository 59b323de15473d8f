package state

import "strings"

// Status is one of the five signals a child assistant writes to .ralph/status.
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusContinue Status = "CONTINUE"
	StatusRotate   Status = "ROTATE"
	StatusDone     Status = "DONE"
	StatusStuck    Status = "STUCK"
)

// ParseStatus implements the status-file grammar: case-insensitive on read,
// anything unrecognised maps to CONTINUE (NOT to IDLE — that split is
// intentional, see the reference implementation's read path).
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(StatusIdle):
		return StatusIdle
	case string(StatusContinue):
		return StatusContinue
	case string(StatusRotate):
		return StatusRotate
	case string(StatusDone):
		return StatusDone
	case string(StatusStuck):
		return StatusStuck
	default:
		return StatusContinue
	}
}

// ParseStatusOrIdle applies the "missing/empty file defaults to IDLE" rule,
// distinct from ParseStatus's "unknown value defaults to CONTINUE" rule.
func ParseStatusOrIdle(s string) Status {
	if strings.TrimSpace(s) == "" {
		return StatusIdle
	}
	return ParseStatus(s)
}
