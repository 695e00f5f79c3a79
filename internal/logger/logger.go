package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

// Stderr until Init so packages can log before (or without) a log directory.
var (
	Info  = log.New(os.Stderr, "INFO: ", flags)
	Error = log.New(os.Stderr, "ERROR: ", flags)
)

// Init initializes the logger to write to both console and a file
func Init(logDir string, console io.Writer) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "dbcheck.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	SetOutput(io.MultiWriter(console, logFile))
	return nil
}

// SetOutput points both loggers at w.
func SetOutput(w io.Writer) {
	Info = log.New(w, "INFO: ", flags)
	Error = log.New(w, "ERROR: ", flags)
}
