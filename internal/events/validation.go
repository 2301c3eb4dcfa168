package events

import (
	"time"

	validation "github.com/protectql/depthgate/internal/validation"
)

// ValidationStart is emitted before the validation phase runs on a query.
type ValidationStart struct {
	Query         string
	OperationName string
}

// ValidationFinish is emitted after the validation phase completes.
type ValidationFinish struct {
	Query         string
	OperationName string
	Violations    []*validation.Violation
	Duration      time.Duration
}
