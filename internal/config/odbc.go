package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ODBCInstPath is the unixODBC driver registry: $ODBCSYSINI/odbcinst.ini,
// else /etc/odbcinst.ini.
func ODBCInstPath() string {
	if dir := os.Getenv("ODBCSYSINI"); dir != "" {
		return filepath.Join(dir, "odbcinst.ini")
	}
	return "/etc/odbcinst.ini"
}

// InstalledODBCDrivers returns the driver names registered in an odbcinst.ini
// file, in file order. The [ODBC] and [ODBC Drivers] sections are settings,
// not drivers.
func InstalledODBCDrivers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var drivers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}
		name := strings.TrimSpace(line[1 : len(line)-1])
		if name == "" || strings.EqualFold(name, "ODBC") || strings.EqualFold(name, "ODBC Drivers") {
			continue
		}
		drivers = append(drivers, name)
	}
	return drivers, scanner.Err()
}
