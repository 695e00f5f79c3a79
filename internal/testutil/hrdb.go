// Package testutil builds SQLite databases shaped like the HR sample schema.
package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"dbcheck/internal/core"
)

// HRSnapshot controls the contents of the seeded hr schema.
type HRSnapshot struct {
	Countries    int
	MaxDependent int
	Employees    []Employee
}

type Employee struct {
	ID       int
	LastName string
	JobID    string
}

// KnownGood is the snapshot every default check passes against.
var KnownGood = HRSnapshot{
	Countries:    25,
	MaxDependent: 30,
	Employees: []Employee{
		{ID: 100, LastName: "King", JobID: "4"},
		{ID: 101, LastName: "Kochhar", JobID: "5"},
		{ID: 102, LastName: "De Haan", JobID: "5"},
		{ID: 103, LastName: "Hunold", JobID: "9"},
	},
}

// NewHRDatabase seeds an hr.db file and returns a target DB with it attached
// as schema "hr", plus the default suite wired to attach it on connect.
func NewHRDatabase(t *testing.T, snap HRSnapshot) (*sql.DB, *core.Suite) {
	t.Helper()

	dir := t.TempDir()
	hrPath := filepath.Join(dir, "hr.db")

	seed, err := sql.Open("sqlite", hrPath)
	if err != nil {
		t.Fatalf("open hr: %v", err)
	}
	defer seed.Close()

	stmts := []string{
		`CREATE TABLE countries (country_id TEXT PRIMARY KEY, country_name TEXT)`,
		`CREATE TABLE employees (employee_id INTEGER PRIMARY KEY, last_name TEXT NOT NULL, job_id TEXT NOT NULL)`,
		`CREATE TABLE dependents (dependent_id INTEGER PRIMARY KEY, employee_id INTEGER)`,
	}
	for i := 0; i < snap.Countries; i++ {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO countries VALUES ('C%02d', 'Country %d')`, i, i))
	}
	for _, e := range snap.Employees {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO employees VALUES (%d, '%s', '%s')`, e.ID, strings.ReplaceAll(e.LastName, "'", "''"), e.JobID))
	}
	for i := 1; i <= snap.MaxDependent; i++ {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO dependents VALUES (%d, 100)`, i))
	}
	for _, stmt := range stmts {
		if _, err := seed.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "main.db"))
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// ATTACH is per connection; never hand a connection that already has hr attached to the next run.
	db.SetMaxIdleConns(0)

	suite := core.DefaultSuite("sqlite")
	suite.Init = []string{fmt.Sprintf("ATTACH DATABASE '%s' AS hr", hrPath)}
	return db, suite
}
