// Package cli is the pipelinedag command line: the HTTP service plus the
// check and watch commands for pipeline documents on disk.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	coreapp "pipelinedag/internal/core/app"
	"pipelinedag/internal/core/config"
	"pipelinedag/internal/shared/version"
)

const configFileName = config.DefaultFileName

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitInvalid
	}

	if opts.version {
		fmt.Fprintf(stdout, "pipelinedag v%s\n", version.Version)
		return exitOK
	}

	uiMode := opts.command == commandWatch && opts.ui
	cleanupLogs := configureLogging(uiMode, opts.verbose, stderr)
	defer cleanupLogs()

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFailure
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.command {
	case commandCheck:
		return runCheck(ctx, app, opts, stdout)
	case commandWatch:
		return runWatch(ctx, app, opts, stdout)
	default:
		return runServe(ctx, app, cfgPath)
	}
}

// loadConfig returns the configuration and the file it came from. The
// default path may be absent, in which case built-in defaults apply and the
// returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return cfg, "", nil
	}
	return cfg, path, nil
}

// configureLogging keeps logs off stdout in UI mode so they cannot corrupt
// the terminal UI. In plain modes logs go to stderr, leaving stdout for results.
func configureLogging(uiMode, verbose bool, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pipelinedag", "pipelinedag.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pipelinedag", "pipelinedag.log")
	}

	return "pipelinedag.log"
}
