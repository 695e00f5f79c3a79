package core

import (
	"time"
)

// CheckKind names the assertion a check makes about its result set.
type CheckKind string

const (
	KindTableExists CheckKind = "table_exists"
	KindRowCount    CheckKind = "row_count"
	KindExists      CheckKind = "exists"
	KindAbsent      CheckKind = "absent"
	KindScalar      CheckKind = "scalar"
	KindRangeEmpty  CheckKind = "range_empty"
)

// Kinds lists every supported check kind.
var Kinds = []CheckKind{KindTableExists, KindRowCount, KindExists, KindAbsent, KindScalar, KindRangeEmpty}

type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// Check is one fixed SQL statement plus the literal expectation about its result.
type Check struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        CheckKind `json:"kind" yaml:"kind" validate:"required,checkkind"`
	SQL         string    `json:"sql" yaml:"sql" validate:"required"`
	Expect      any       `json:"expect,omitempty" yaml:"expect,omitempty"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"` // Prefix for scalar mismatch messages
}

type Suite struct {
	Name   string   `json:"name" yaml:"name" validate:"required"`
	Init   []string `json:"init,omitempty" yaml:"init,omitempty"` // Session statements run once on the pinned connection
	Checks []Check  `json:"checks" yaml:"checks" validate:"required,min=1,dive"`
}

type CheckResult struct {
	Name     string        `json:"name"`
	Kind     CheckKind     `json:"kind"`
	SQL      string        `json:"sql"`
	Status   Status        `json:"status"`
	RowCount int           `json:"row_count"`
	Actual   any           `json:"actual,omitempty"`
	Expected any           `json:"expected,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Target describes the database a run was executed against, without credentials.
type Target struct {
	Driver   string `json:"driver"`
	Server   string `json:"server,omitempty"`
	Database string `json:"database,omitempty"`
}

type Run struct {
	ID        string        `json:"id"`
	Suite     string        `json:"suite"`
	Target    Target        `json:"target"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []CheckResult `json:"results"`
}

// Count returns how many results have the given status.
func (r *Run) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// OK reports whether every check passed.
func (r *Run) OK() bool {
	return r.Count(StatusPass) == len(r.Results)
}
