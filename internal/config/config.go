package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	encPrefix = "enc:"

	DefaultODBCDriver = "ODBC Driver 17 for SQL Server"
	defaultDatabase   = "TRN_2"
)

// Target holds everything needed to reach the database under test.
type Target struct {
	Driver     string // database/sql driver name: odbc, sqlserver, postgres, mysql, sqlite
	ODBCDriver string // ODBC driver name placed in Driver={...}
	Server     string
	Database   string
	Trusted    bool // Windows/integrated authentication
	TrustCert  bool
	User       string
	Password   string // may carry the enc: prefix until decrypted
	DSN        string // raw connection string, overrides everything above
}

type Config struct {
	Port       int
	Target     Target
	SuitePath  string
	LogDir     string
	History    string
	Key        string // DBCHECK_KEY, decrypts enc: passwords
	APIKeyHash string
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:       envInt("PORT", 8080),
		SuitePath:  os.Getenv("DBCHECK_SUITE"),
		LogDir:     envString("DBCHECK_LOG_DIR", "logs"),
		History:    os.Getenv("DBCHECK_HISTORY"),
		Key:        os.Getenv("DBCHECK_KEY"),
		APIKeyHash: os.Getenv("DBCHECK_API_KEY_HASH"),
		Target: Target{
			Driver:     strings.ToLower(envString("DBCHECK_DRIVER", "odbc")),
			ODBCDriver: envString("DBCHECK_ODBC_DRIVER", DefaultODBCDriver),
			Server:     envString("DBCHECK_SERVER", "localhost"),
			Database:   os.Getenv("DBCHECK_DATABASE"),
			Trusted:    envBool("DBCHECK_TRUSTED", true),
			TrustCert:  envBool("DBCHECK_TRUST_CERT", true),
			User:       os.Getenv("DBCHECK_USER"),
			Password:   os.Getenv("DBCHECK_PASSWORD"),
			DSN:        os.Getenv("DBCHECK_DSN"),
		},
	}

	if cfg.Target.Driver == "mssql" {
		cfg.Target.Driver = "sqlserver"
	}
	// A sqlite target has no sensible default file.
	if cfg.Target.Database == "" && cfg.Target.Driver != "sqlite" {
		cfg.Target.Database = defaultDatabase
	}

	if err := cfg.Target.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *Target) validate() error {
	if t.DSN != "" {
		return nil
	}
	switch t.Driver {
	case "odbc", "sqlserver", "postgres", "mysql":
		if !t.Trusted && t.User == "" && t.Driver != "postgres" {
			return fmt.Errorf("DBCHECK_USER is required when DBCHECK_TRUSTED is false")
		}
	case "sqlite":
		if t.Database == "" {
			return fmt.Errorf("DBCHECK_DATABASE must name the sqlite file")
		}
	default:
		return fmt.Errorf("unsupported driver %q", t.Driver)
	}
	return nil
}

// PasswordEncrypted reports whether Password still carries the enc: prefix.
func (t *Target) PasswordEncrypted() bool {
	return strings.HasPrefix(t.Password, encPrefix)
}

// EncryptedPassword returns the ciphertext part of an enc: password.
func (t *Target) EncryptedPassword() string {
	return strings.TrimPrefix(t.Password, encPrefix)
}

// NeedsPassword reports whether SQL authentication is configured without a password.
func (t *Target) NeedsPassword() bool {
	return t.DSN == "" && !t.Trusted && t.User != "" && t.Password == "" && t.Driver != "sqlite"
}

// ConnectionString builds the driver specific DSN.
func (t *Target) ConnectionString() string {
	if t.DSN != "" {
		return t.DSN
	}

	switch t.Driver {
	case "odbc":
		var b strings.Builder
		fmt.Fprintf(&b, "Driver={%s};", t.ODBCDriver)
		fmt.Fprintf(&b, "Server=%s;", t.Server)
		fmt.Fprintf(&b, "Database=%s;", t.Database)
		if t.Trusted {
			b.WriteString("Trusted_Connection=yes;")
		} else {
			fmt.Fprintf(&b, "UID=%s;PWD=%s;", t.User, odbcEscape(t.Password))
		}
		if t.TrustCert {
			b.WriteString("TrustServerCertificate=Yes;")
		}
		return b.String()

	case "sqlserver":
		q := url.Values{}
		q.Set("database", t.Database)
		if t.TrustCert {
			q.Set("TrustServerCertificate", "true")
		}
		u := &url.URL{Scheme: "sqlserver", Host: t.Server, RawQuery: q.Encode()}
		if !t.Trusted {
			u.User = url.UserPassword(t.User, t.Password)
		}
		return u.String()

	case "postgres":
		q := url.Values{}
		if t.TrustCert {
			q.Set("sslmode", "require")
		} else {
			q.Set("sslmode", "disable")
		}
		u := &url.URL{Scheme: "postgres", Host: t.Server, Path: "/" + t.Database, RawQuery: q.Encode()}
		if t.User != "" {
			u.User = url.UserPassword(t.User, t.Password)
		}
		return u.String()

	case "mysql":
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = t.Server
		mc.DBName = t.Database
		mc.User = t.User
		mc.Passwd = t.Password
		if t.TrustCert {
			mc.TLSConfig = "skip-verify"
		}
		return mc.FormatDSN()

	case "sqlite":
		return t.Database
	}
	return ""
}

// Redacted returns the connection string with the password masked, for logs.
// A raw DSN is never echoed since it may embed credentials.
func (t *Target) Redacted() string {
	if t.DSN != "" {
		return "<DBCHECK_DSN>"
	}
	masked := *t
	if masked.Password != "" {
		masked.Password = "xxxxx"
	}
	return masked.ConnectionString()
}

// odbcEscape wraps values containing ; or braces in {} as ODBC connection strings require.
func odbcEscape(v string) string {
	if strings.ContainsAny(v, ";{}") {
		return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
