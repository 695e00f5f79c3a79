package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dbcheck/internal/core"
	"dbcheck/internal/logger"
)

// Harness runs a suite of checks against one target database.
// Checks run sequentially on a single pinned connection; each check gets its
// own transaction that is always rolled back.
type Harness struct {
	db      *sql.DB
	target  core.Target
	newID   func() string
	verbose bool
}

type Option func(*Harness)

// WithTarget records which database the runs were executed against.
func WithTarget(t core.Target) Option {
	return func(h *Harness) { h.target = t }
}

// WithIDFunc overrides run ID generation.
func WithIDFunc(fn func() string) Option {
	return func(h *Harness) { h.newID = fn }
}

// WithVerbose logs the SQL, row count and actual value of every check.
func WithVerbose(v bool) Option {
	return func(h *Harness) { h.verbose = v }
}

func NewHarness(db *sql.DB, opts ...Option) *Harness {
	h := &Harness{
		db:    db,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ResultSet is a fully consumed query result.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Run executes every check of suite in order.
// The returned error is a setup failure (no connection, failed session init,
// cancelled context); check failures are reported in the Run's results.
func (h *Harness) Run(ctx context.Context, suite *core.Suite) (*core.Run, error) {
	startTime := time.Now()

	conn, err := h.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	for _, stmt := range suite.Init {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("session init %q: %w", stmt, err)
		}
	}

	run := &core.Run{
		ID:        h.newID(),
		Suite:     suite.Name,
		Target:    h.target,
		StartedAt: startTime,
		Results:   make([]core.CheckResult, 0, len(suite.Checks)),
	}

	for _, check := range suite.Checks {
		if err := ctx.Err(); err != nil {
			run.Duration = time.Since(startTime)
			return run, fmt.Errorf("run interrupted: %w", err)
		}

		res := h.RunCheck(ctx, conn, check)
		if h.verbose {
			logger.Info.Printf("%s: %s -> %d rows, actual %v", res.Name, res.SQL, res.RowCount, res.Actual)
		}
		switch res.Status {
		case core.StatusPass:
			logger.Info.Printf("PASS %s (%v)", res.Name, res.Duration)
		case core.StatusFail:
			logger.Info.Printf("FAIL %s: %s", res.Name, res.Message)
		default:
			logger.Error.Printf("ERROR %s: %s", res.Name, res.Message)
		}
		run.Results = append(run.Results, res)
	}

	run.Duration = time.Since(startTime)
	return run, nil
}

// RunCheck executes one check inside its own transaction on conn.
func (h *Harness) RunCheck(ctx context.Context, conn *sql.Conn, check core.Check) (res core.CheckResult) {
	startTime := time.Now()
	res = core.CheckResult{
		Name:     check.Name,
		Kind:     check.Kind,
		SQL:      check.SQL,
		Expected: check.Expect,
	}
	defer func() {
		res.Duration = time.Since(startTime)
	}()

	rs, err := query(ctx, conn, check.SQL)
	if err != nil {
		res.Status = core.StatusError
		res.Message = err.Error()
		return res
	}

	res.RowCount = len(rs.Rows)
	res.Status, res.Actual, res.Message = Evaluate(check, rs)
	return res
}

// query runs sqlText in a transaction that is rolled back once the rows are read.
func query(ctx context.Context, conn *sql.Conn, sqlText string) (*ResultSet, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execution error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			values[i] = core.Normalize(v)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execution error: %w", err)
	}

	return rs, nil
}

// Evaluate compares a result set against the check's expectation.
func Evaluate(check core.Check, rs *ResultSet) (core.Status, any, string) {
	n := len(rs.Rows)

	switch check.Kind {
	case core.KindTableExists:
		if n != 1 {
			return core.StatusFail, n, fmt.Sprintf("expected catalog query to return 1 row, got %d", n)
		}
		return core.StatusPass, n, ""

	case core.KindRowCount:
		if !core.ValuesEqual(n, check.Expect) {
			return core.StatusFail, n, fmt.Sprintf("expected %v rows, got %d", check.Expect, n)
		}
		return core.StatusPass, n, ""

	case core.KindExists:
		if n == 0 {
			return core.StatusFail, n, "expected at least one row, got 0"
		}
		return core.StatusPass, n, ""

	case core.KindAbsent, core.KindRangeEmpty:
		if n != 0 {
			return core.StatusFail, n, fmt.Sprintf("expected no rows, got %d", n)
		}
		return core.StatusPass, n, ""

	case core.KindScalar:
		if n != 1 || len(rs.Columns) == 0 {
			return core.StatusFail, nil, fmt.Sprintf("expected a single value, got %d rows", n)
		}
		actual := rs.Rows[0][0]
		if !core.ValuesEqual(actual, check.Expect) {
			msg := check.Message
			if msg == "" {
				msg = "value does not match expected value"
			}
			return core.StatusFail, actual, fmt.Sprintf("%s, got: %v", msg, actual)
		}
		return core.StatusPass, actual, ""
	}

	return core.StatusError, nil, fmt.Sprintf("unknown check kind %q", check.Kind)
}
