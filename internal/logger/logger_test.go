package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Info.Println("hello")
	Error.Println("boom")

	assert.Contains(t, buf.String(), "INFO: ")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "ERROR: ")
}

func TestInitCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	require.NoError(t, Init(dir, &console))
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Info.Println("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "dbcheck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, console.String(), "written to file")
}
