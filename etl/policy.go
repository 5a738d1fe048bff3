package etl

import "github.com/charmbracelet/log"

// ErrorPolicy decides how a failed stage affects the rest of a run.
type ErrorPolicy int

const (
	// Tolerate logs the failure and continues with the next stage. Schema
	// creation uses it, so a broken schema only surfaces once loading fails.
	Tolerate ErrorPolicy = iota

	// AbortBatch logs the failure and ends the run without loading
	// anything. The run still counts as completed.
	AbortBatch
)

func (p ErrorPolicy) String() string {
	switch p {
	case Tolerate:
		return "tolerate"
	case AbortBatch:
		return "abort-batch"
	default:
		return "unknown"
	}
}

// handle logs err and reports whether the run may continue.
func (p ErrorPolicy) handle(logger *log.Logger, msg string, err error) bool {
	logger.Error(msg, "err", err, "policy", p)
	return p == Tolerate
}
