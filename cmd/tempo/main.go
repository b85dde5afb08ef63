// Command tempo is the thin CLI surfacing session control (spec.md §6
// notes a CLI isn't specified in detail beyond start/stop/export).
//
// Usage:
//
//	tempo start -user <id> [-goal <text>] [-session <id>] [-data-dir <path>] [-debug-sink <path>|-]
//	tempo export -session <id> [-data-dir <path>]
//	tempo permissions [-data-dir <path>]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(os.Getenv("TEMPO_LOG_LEVEL"))}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(ctx, logger, os.Args[2:])
	case "export":
		err = runExport(ctx, logger, os.Args[2:])
	case "permissions":
		err = runPermissions(logger, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("tempo: fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tempo start -user <id> [-goal <text>] [-session <id>] [-data-dir <path>] [-debug-sink <path>|-]")
	fmt.Fprintln(os.Stderr, "       tempo export -session <id> [-data-dir <path>]")
	fmt.Fprintln(os.Stderr, "       tempo permissions [-data-dir <path>]")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runStart starts a session, runs until SIGINT/SIGTERM, then stops it and
// prints the final summary — spec.md §6's start_session/stop_session
// pair collapsed into one foreground CLI invocation.
func runStart(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	userID := fs.String("user", "", "user id (required)")
	dailyGoal := fs.String("goal", "", "daily goal text")
	sessionID := fs.String("session", "", "resume an existing session id")
	dataDir := fs.String("data-dir", "", "override the default per-user data directory")
	debugSink := fs.String("debug-sink", "", "write raw capture events as JSON lines to this path, or \"-\" for stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("start: -user is required")
	}

	cfg := session.DefaultConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	sess := session.New(cfg, logger)

	if *debugSink == "-" {
		sess.SetDebugSink(os.Stderr)
	} else if *debugSink != "" {
		f, err := os.OpenFile(*debugSink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("start: open -debug-sink: %w", err)
		}
		defer f.Close()
		sess.SetDebugSink(f)
	}

	for _, p := range sess.CheckPermissions() {
		if !p.Granted {
			logger.Warn("tempo: permission not granted", "name", p.Name, "description", p.Description)
		}
	}

	id, startedAt, err := sess.Start(ctx, *userID, *dailyGoal, *sessionID)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	logger.Info("tempo: session started", "session_id", id, "started_at", startedAt)

	<-ctx.Done()
	logger.Info("tempo: stopping session", "session_id", id)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	final, endedAt, err := sess.Stop(stopCtx)
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	return printJSON(struct {
		SessionID string                     `json:"session_id"`
		EndedAt   time.Time                  `json:"ended_at"`
		Final     events.FinalSessionSummary `json:"final_summary"`
	}{id, endedAt, final})
}

// runExport prints export_session's full dump for an already-closed
// session without starting capture.
func runExport(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sessionID := fs.String("session", "", "session id to export (required)")
	dataDir := fs.String("data-dir", "", "override the default per-user data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return fmt.Errorf("export: -session is required")
	}

	cfg := session.DefaultConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	sess := session.New(cfg, logger)

	out, err := sess.Export(ctx, *sessionID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return printJSON(out)
}

// runPermissions prints check_permissions' probe results.
func runPermissions(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("permissions", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "override the default per-user data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := session.DefaultConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	sess := session.New(cfg, logger)
	return printJSON(sess.CheckPermissions())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
