package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"dbcheck/internal/api"
	"dbcheck/internal/config"
	"dbcheck/internal/core"
	"dbcheck/internal/data"
	"dbcheck/internal/logger"
	"dbcheck/internal/report"
	"dbcheck/internal/service"

	// Drivers
	_ "github.com/alexbrainman/odbc"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Exit codes.
const (
	ExitSuccess = 0 // every check passed
	ExitFailure = 1 // at least one check failed or errored
	ExitSetup   = 2 // config, connection or suite problem; no checks ran
)

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		os.Exit(runChecks(args))
	case "drivers":
		selected := config.DefaultODBCDriver
		if cfg, err := config.Load(); err == nil {
			selected = cfg.Target.ODBCDriver
		}
		listDrivers(os.Stdout, config.ODBCInstPath(), selected)
	case "serve":
		startServer(args)
	case "hash-key":
		handleHashKey()
	case "encrypt":
		handleEncrypt()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printHelp()
		os.Exit(ExitSetup)
	}
}

func printHelp() {
	fmt.Println("dbcheck - database smoke checks")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dbcheck [run] [-suite f.yaml] [-json | -format text|json] [-report out.html] [-history runs.db] [-v]")
	fmt.Println("                                   Run the checks once (default command)")
	fmt.Println("  dbcheck drivers                  List database/sql and installed ODBC drivers")
	fmt.Println("  dbcheck serve [-port 8080]       Serve the HTTP API")
	fmt.Println("  dbcheck hash-key                 Hash an API key for DBCHECK_API_KEY_HASH (interactive)")
	fmt.Println("  dbcheck encrypt                  Encrypt a password for DBCHECK_PASSWORD (interactive)")
	fmt.Println("  dbcheck help                     Show this help")
	fmt.Println()
	fmt.Println("Connection settings come from the environment or .env, see DBCHECK_* variables.")
}

// runOptions holds the flags of the run command.
type runOptions struct {
	suitePath   string
	format      string
	htmlPath    string
	historyPath string
	verbose     bool
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, error) {
	opts := &runOptions{}
	var asJSON bool

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.suitePath, "suite", "", "YAML suite file (default: built-in hr suite)")
	fs.StringVar(&opts.format, "format", "text", "stdout format: text or json")
	fs.BoolVar(&asJSON, "json", false, "shorthand for -format json")
	fs.StringVar(&opts.htmlPath, "report", "", "write an HTML report to this file")
	fs.StringVar(&opts.historyPath, "history", "", "record the run in this SQLite file")
	fs.BoolVar(&opts.verbose, "v", false, "log the SQL, row count and value of every check")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if asJSON {
		opts.format = "json"
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("invalid format %q: must be text or json", opts.format)
	}
	return opts, nil
}

func runChecks(args []string) int {
	opts, err := parseRunFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitSetup
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return ExitSetup
	}
	if opts.suitePath == "" {
		opts.suitePath = cfg.SuitePath
	}
	if opts.historyPath == "" {
		opts.historyPath = cfg.History
	}

	if err := logger.Init(cfg.LogDir, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		return ExitSetup
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := loadSuite(opts.suitePath, cfg.Target.Driver)
	if err != nil {
		logger.Error.Printf("Failed to load suite: %v", err)
		return ExitSetup
	}

	db, err := openTarget(ctx, cfg)
	if err != nil {
		logger.Error.Printf("Connection failed: %v", err)
		return ExitSetup
	}
	defer db.Close()

	harness := service.NewHarness(db,
		service.WithTarget(core.Target{
			Driver:   cfg.Target.Driver,
			Server:   cfg.Target.Server,
			Database: cfg.Target.Database,
		}),
		service.WithVerbose(opts.verbose),
	)

	run, err := harness.Run(ctx, suite)
	return finishRun(os.Stdout, run, err, opts)
}

// finishRun reports whatever checks completed, including those of an interrupted run.
func finishRun(stdout io.Writer, run *core.Run, runErr error, opts *runOptions) int {
	if run == nil {
		logger.Error.Printf("Run aborted: %v", runErr)
		return ExitSetup
	}

	if err := writeOutputs(stdout, run, opts.format, opts.htmlPath); err != nil {
		logger.Error.Printf("Failed to write report: %v", err)
	}

	if opts.historyPath != "" {
		if err := recordRun(opts.historyPath, run); err != nil {
			logger.Error.Printf("Failed to record run: %v", err)
		}
	}

	if runErr != nil {
		logger.Error.Printf("Run aborted after %d checks: %v", len(run.Results), runErr)
		return ExitSetup
	}
	return exitCode(run)
}

func exitCode(run *core.Run) int {
	if run.OK() {
		return ExitSuccess
	}
	return ExitFailure
}

func loadSuite(path, driver string) (*core.Suite, error) {
	if path == "" {
		return core.DefaultSuite(driver), nil
	}
	return core.LoadSuite(path)
}

func writeOutputs(stdout io.Writer, run *core.Run, format, htmlPath string) error {
	var err error
	if format == "json" {
		err = report.WriteJSON(stdout, run)
	} else {
		err = report.WriteText(stdout, run)
	}
	if err != nil {
		return err
	}

	if htmlPath == "" {
		return nil
	}
	f, err := os.Create(htmlPath)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, run); err != nil {
		f.Close()
		return err
	}
	logger.Info.Printf("HTML report written to %s", htmlPath)
	return f.Close()
}

func recordRun(path string, run *core.Run) error {
	db, err := data.InitDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return data.NewRunRepo(db).Create(run)
}

// openTarget resolves the password (decrypting or prompting) and connects.
func openTarget(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	target := cfg.Target

	if target.PasswordEncrypted() {
		cryptoSvc, err := service.NewEncryptionService(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("encrypted password needs DBCHECK_KEY: %w", err)
		}
		plain, err := cryptoSvc.Decrypt(target.EncryptedPassword())
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt password: %w", err)
		}
		target.Password = plain
	}

	if target.NeedsPassword() && term.IsTerminal(int(syscall.Stdin)) {
		pass, err := readSecret(fmt.Sprintf("Password for %s: ", target.User))
		if err != nil {
			return nil, err
		}
		target.Password = pass
	}

	logger.Info.Printf("Connecting with %s: %s", target.Driver, target.Redacted())
	return data.OpenTarget(ctx, target.Driver, target.ConnectionString())
}

// listDrivers prints the registered database/sql drivers and the ODBC drivers
// installed on this machine, marking the one DBCHECK_ODBC_DRIVER selects.
func listDrivers(stdout io.Writer, odbcinst, selected string) {
	drivers := sql.Drivers()
	sort.Strings(drivers)
	fmt.Fprintln(stdout, "database/sql drivers:")
	for _, d := range drivers {
		fmt.Fprintf(stdout, "  %s\n", d)
	}

	fmt.Fprintf(stdout, "ODBC drivers (%s):\n", odbcinst)
	installed, err := config.InstalledODBCDrivers(odbcinst)
	if err != nil {
		fmt.Fprintf(stdout, "  none found: %v\n", err)
		return
	}
	for _, d := range installed {
		mark := " "
		if d == selected {
			mark = "*"
		}
		fmt.Fprintf(stdout, "%s %s\n", mark, d)
	}
}

func startServer(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env file or DBCHECK_* environment variables.\n", err)
		os.Exit(ExitSetup)
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "listen port")
	suitePath := fs.String("suite", cfg.SuitePath, "YAML suite file (default: built-in hr suite)")
	historyPath := fs.String("history", cfg.History, "SQLite run history (default: dbcheck.db)")
	fs.Parse(args)
	if *historyPath == "" {
		*historyPath = "dbcheck.db"
	}

	if err := logger.Init(cfg.LogDir, os.Stdout); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(ExitSetup)
	}
	logger.Info.Println("Starting dbcheck server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := loadSuite(*suitePath, cfg.Target.Driver)
	if err != nil {
		logger.Error.Fatalf("Failed to load suite: %v", err)
	}

	history, err := data.InitDB(*historyPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init history: %v", err)
	}
	defer history.Close()

	db, err := openTarget(ctx, cfg)
	if err != nil {
		logger.Error.Fatalf("Connection failed: %v", err)
	}
	defer db.Close()

	if cfg.APIKeyHash == "" {
		logger.Info.Println("DBCHECK_API_KEY_HASH not set, API is unauthenticated")
	}

	harness := service.NewHarness(db, service.WithTarget(core.Target{
		Driver:   cfg.Target.Driver,
		Server:   cfg.Target.Server,
		Database: cfg.Target.Database,
	}))
	handler := api.NewHandler(harness, suite, data.NewRunRepo(history), cfg.APIKeyHash)
	limiter := api.NewRateLimiter(ctx, 60, 10) // 60 req/min, burst 10

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           handler.Routes(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info.Printf("Server listening on port %d", *port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}

func handleHashKey() {
	key, err := readConfirmedSecret("API key: ")
	if err != nil {
		fmt.Println(err)
		os.Exit(ExitSetup)
	}

	hash, err := service.HashAPIKey(key)
	if err != nil {
		fmt.Printf("Failed to hash key: %v\n", err)
		os.Exit(ExitSetup)
	}
	fmt.Printf("DBCHECK_API_KEY_HASH=%s\n", hash)
}

func handleEncrypt() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(ExitSetup)
	}

	cryptoSvc, err := service.NewEncryptionService(cfg.Key)
	if err != nil {
		fmt.Printf("Failed to init crypto service: %v\n", err)
		os.Exit(ExitSetup)
	}

	password, err := readConfirmedSecret("Database password: ")
	if err != nil {
		fmt.Println(err)
		os.Exit(ExitSetup)
	}

	enc, err := cryptoSvc.Encrypt(password)
	if err != nil {
		fmt.Printf("Failed to encrypt: %v\n", err)
		os.Exit(ExitSetup)
	}
	fmt.Printf("DBCHECK_PASSWORD=enc:%s\n", enc)
}

func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(b), nil
}

func readConfirmedSecret(prompt string) (string, error) {
	first, err := readSecret(prompt)
	if err != nil {
		return "", err
	}
	second, err := readSecret("Confirm: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("inputs do not match")
	}
	if first == "" {
		return "", errors.New("input cannot be empty")
	}
	return first, nil
}
