//go:build live

package service

import (
	"context"
	"os"
	"testing"

	_ "github.com/alexbrainman/odbc"
	_ "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/require"

	"dbcheck/internal/core"
	"dbcheck/internal/data"
)

// Runs the hr suite against a real server; needs -tags live and DBCHECK_LIVE_DSN.
func TestLiveDefaultSuite(t *testing.T) {
	dsn := os.Getenv("DBCHECK_LIVE_DSN")
	if dsn == "" {
		t.Skip("DBCHECK_LIVE_DSN not provided")
	}
	driver := os.Getenv("DBCHECK_LIVE_DRIVER")
	if driver == "" {
		driver = "odbc"
	}

	db, err := data.OpenTarget(context.Background(), driver, dsn)
	require.NoError(t, err)
	defer db.Close()

	run, err := NewHarness(db).Run(context.Background(), core.DefaultSuite(driver))
	require.NoError(t, err)
	for _, res := range run.Results {
		require.Equal(t, core.StatusPass, res.Status, "%s: %s", res.Name, res.Message)
	}
}
