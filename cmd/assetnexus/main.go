package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/assetnexus/internal/api"
	"github.com/erazemk/assetnexus/internal/auth"
	"github.com/erazemk/assetnexus/internal/config"
	"github.com/erazemk/assetnexus/internal/db"
	"github.com/erazemk/assetnexus/internal/lifecycle"
	"github.com/erazemk/assetnexus/internal/metrics"
	"github.com/erazemk/assetnexus/internal/model"
	"github.com/erazemk/assetnexus/internal/store"
	"github.com/erazemk/assetnexus/internal/trail"
)

const usage = `Usage: assetnexus [flags]

Flags:
  -d, -db <path>          SQLite database path (default: assetnexus.sqlite3, env ASSET_DB)
  -a, -addr <host:port>   listen address (default: :8080, env ASSET_ADDR)
  -u, -user <name>        admin username on first run (default: Admin, env ASSET_ADMIN_USER)
  -l, -log <path>         log file path (default: no file, env ASSET_LOG)
  -h, -help               show this help and exit

Environment only:
  ASSET_OP_TIMEOUT        time limit of one lifecycle operation (default: 5s)
  ASSET_BARCODE_ATTEMPTS  barcode generation attempts per item (default: 32)
  ASSET_TOKEN_TTL         login token lifetime (default: 168h)

A .env file in the working directory is read when present.
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("assetnexus", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Idempotent.
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	m := metrics.New()
	recorder := trail.NewRecorder(database, m)
	coordinator := lifecycle.New(database, lifecycle.Options{
		Timeout:         cfg.OpTimeout,
		BarcodeAttempts: cfg.BarcodeAttempts,
		Metrics:         m,
		Trail:           recorder,
	})

	handler := api.NewRouter(api.Deps{
		DB:          database,
		Coordinator: coordinator,
		Tokens:      auth.NewTokens(jwtSecret, cfg.TokenTTL),
		Trail:       recorder,
		Metrics:     m,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Addr, "op_timeout", cfg.OpTimeout)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}

	slog.Info("server stopped, closing database")
	return nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(err)
	}

	_, err = store.CreateUser(context.Background(), database, adminUsername, hash, model.RoleAdmin)
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
