package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSuite(t *testing.T) {
	s := DefaultSuite("odbc")
	require.NoError(t, ValidateSuite(s))
	require.Len(t, s.Checks, 6)

	kinds := make([]CheckKind, 0, len(s.Checks))
	for _, c := range s.Checks {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, Kinds, kinds)

	assert.Equal(t, "SELECT * FROM information_schema.tables WHERE table_name = 'countries'", s.Checks[0].SQL)
	assert.Equal(t, "SELECT MAX(dependent_id) dependent_id FROM [hr].[dependents]", s.Checks[4].SQL)
	assert.Equal(t, 25, s.Checks[1].Expect)
	assert.Equal(t, 30, s.Checks[4].Expect)
}

func TestDefaultSuiteDialects(t *testing.T) {
	pg := DefaultSuite("postgres")
	assert.Equal(t, "SELECT country_id FROM hr.countries", pg.Checks[1].SQL)

	lite := DefaultSuite("sqlite")
	assert.Contains(t, lite.Checks[0].SQL, "hr.sqlite_master")
	assert.Equal(t, "SELECT country_id FROM [hr].[countries]", lite.Checks[1].SQL)
}

func TestParseSuite(t *testing.T) {
	content := []byte(`
name: smoke
init:
  - SET NOCOUNT ON
checks:
  - description: Verify the number of rows
    kind: ROW_COUNT
    sql: SELECT country_id FROM hr.countries
    expect: 25
  - name: max_dependent
    kind: scalar
    sql: SELECT MAX(dependent_id) FROM hr.dependents
    expect: 30
    message: maximum value does not match expected value
`)

	s, err := ParseSuite(content)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, []string{"SET NOCOUNT ON"}, s.Init)
	require.Len(t, s.Checks, 2)
	assert.Equal(t, "verify_the_number_of_rows", s.Checks[0].Name)
	assert.Equal(t, KindRowCount, s.Checks[0].Kind)
	assert.Equal(t, 25, s.Checks[0].Expect)
	assert.Equal(t, "maximum value does not match expected value", s.Checks[1].Message)
}

func TestParseSuiteInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{
			name:    "unknown kind",
			content: "name: s\nchecks:\n  - name: a\n    kind: fuzzy\n    sql: SELECT 1\n",
			msg:     "unknown kind",
		},
		{
			name:    "missing expect",
			content: "name: s\nchecks:\n  - name: a\n    kind: row_count\n    sql: SELECT 1\n",
			msg:     "required for kind row_count",
		},
		{
			name:    "duplicate names",
			content: "name: s\nchecks:\n  - name: a\n    kind: exists\n    sql: SELECT 1\n  - name: a\n    kind: absent\n    sql: SELECT 1\n",
			msg:     `duplicate check name "a"`,
		},
		{
			name:    "no checks",
			content: "name: s\n",
			msg:     "Checks",
		},
		{
			name:    "missing sql",
			content: "name: s\nchecks:\n  - name: a\n    kind: exists\n",
			msg:     "SQL",
		},
		{
			name:    "bad yaml",
			content: "name: [",
			msg:     "invalid suite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.content))
			require.ErrorIs(t, err, ErrInvalidSuite)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: s\nchecks:\n  - name: a\n    kind: exists\n    sql: SELECT 1\n"), 0644))

	s, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "a", s.Checks[0].Name)

	_, err = LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunCounts(t *testing.T) {
	run := &Run{Results: []CheckResult{
		{Status: StatusPass}, {Status: StatusFail}, {Status: StatusPass}, {Status: StatusError},
	}}
	assert.Equal(t, 2, run.Count(StatusPass))
	assert.Equal(t, 1, run.Count(StatusFail))
	assert.Equal(t, 1, run.Count(StatusError))
	assert.False(t, run.OK())

	assert.True(t, (&Run{Results: []CheckResult{{Status: StatusPass}}}).OK())
}

func TestExampleSuiteFile(t *testing.T) {
	s, err := LoadSuite(filepath.Join("..", "..", "examples", "hr.yaml"))
	require.NoError(t, err)
	require.Len(t, s.Checks, 6)

	defaults := DefaultSuite("odbc")
	for i, c := range s.Checks {
		assert.Equal(t, defaults.Checks[i].Name, c.Name)
		assert.Equal(t, defaults.Checks[i].Kind, c.Kind)
	}
}
