package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dbcheck/internal/core"
)

var ErrRunNotFound = errors.New("run not found")

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create stores a run and its check results in one transaction.
func (r *RunRepo) Create(run *core.Run) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`INSERT INTO runs (id, suite, driver, server, database_name, started_at, duration_ns, passed, failed, errored) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.Target.Driver, run.Target.Server, run.Target.Database,
		run.StartedAt.UnixNano(), int64(run.Duration),
		run.Count(core.StatusPass), run.Count(core.StatusFail), run.Count(core.StatusError))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO check_results (run_id, position, name, kind, sql_text, status, row_count, actual, expected, message, duration_ns) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, res := range run.Results {
		actual, err := encodeValue(res.Actual)
		if err != nil {
			return err
		}
		expected, err := encodeValue(res.Expected)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(run.ID, i, res.Name, string(res.Kind), res.SQL, string(res.Status), res.RowCount, actual, expected, res.Message, int64(res.Duration)); err != nil {
			return fmt.Errorf("insert result %s: %w", res.Name, err)
		}
	}

	return tx.Commit()
}

func (r *RunRepo) GetByID(id string) (*core.Run, error) {
	row := r.db.QueryRow(`SELECT id, suite, driver, server, database_name, started_at, duration_ns FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadResults(run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRecent returns the latest runs, newest first, with their results.
func (r *RunRepo) GetRecent(limit int) ([]core.Run, error) {
	rows, err := r.db.Query(`SELECT id, suite, driver, server, database_name, started_at, duration_ns FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if err := r.loadResults(&runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *RunRepo) loadResults(run *core.Run) error {
	rows, err := r.db.Query(`SELECT name, kind, sql_text, status, row_count, actual, expected, message, duration_ns FROM check_results WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			res              core.CheckResult
			kind, status     string
			actual, expected sql.NullString
			message          sql.NullString
			duration         int64
		)
		if err := rows.Scan(&res.Name, &kind, &res.SQL, &status, &res.RowCount, &actual, &expected, &message, &duration); err != nil {
			return err
		}
		res.Kind = core.CheckKind(kind)
		res.Status = core.Status(status)
		res.Message = message.String
		res.Duration = time.Duration(duration)
		if res.Actual, err = decodeValue(actual); err != nil {
			return err
		}
		if res.Expected, err = decodeValue(expected); err != nil {
			return err
		}
		run.Results = append(run.Results, res)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*core.Run, error) {
	var (
		run              core.Run
		server, database sql.NullString
		startedAt        int64
		duration         int64
	)
	if err := s.Scan(&run.ID, &run.Suite, &run.Target.Driver, &server, &database, &startedAt, &duration); err != nil {
		return nil, err
	}
	run.Target.Server = server.String
	run.Target.Database = database.String
	run.StartedAt = time.Unix(0, startedAt).Local()
	run.Duration = time.Duration(duration)
	return &run, nil
}

func encodeValue(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(core.Normalize(v))
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeValue(s sql.NullString) (any, error) {
	if !s.Valid {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, err
	}
	return v, nil
}
