package cli

import (
	"flag"
	"fmt"
	"io"
)

const defaultConfigPath = "./" + configFileName

const (
	commandServe = "serve"
	commandCheck = "check"
	commandWatch = "watch"
)

// Exit codes. check and watch report a cyclic pipeline as 1 and an invalid
// document as 2; runtime failures are 1 and usage errors 2.
const (
	exitOK      = 0
	exitCyclic  = 1
	exitFailure = 1
	exitInvalid = 2
)

type cliOptions struct {
	configPath string
	ui         bool
	jsonOut    bool
	verbose    bool
	version    bool
	command    string
	args       []string
}

// parseOptions accepts flags both before and after the command name:
// pipelinedag [flags] [serve|check|watch] [flags] [paths...]
func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("pipelinedag", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode (watch)")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print results as JSON (check)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.command = commandServe
	rest := fs.Args()
	if len(rest) > 0 {
		opts.command = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return cliOptions{}, err
		}
		rest = fs.Args()
	}
	opts.args = rest

	if err := validateOptions(opts); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func validateOptions(opts cliOptions) error {
	if opts.version {
		return nil
	}
	switch opts.command {
	case commandServe:
		if len(opts.args) > 0 {
			return fmt.Errorf("serve does not accept positional arguments")
		}
		if opts.ui || opts.jsonOut {
			return fmt.Errorf("--ui and --json cannot be used with serve")
		}
	case commandCheck:
		if len(opts.args) == 0 {
			return fmt.Errorf("check requires at least one pipeline file or directory")
		}
		if opts.ui {
			return fmt.Errorf("--ui cannot be used with check")
		}
	case commandWatch:
		if len(opts.args) == 0 {
			return fmt.Errorf("watch requires at least one pipeline file or directory")
		}
		if opts.jsonOut && opts.ui {
			return fmt.Errorf("--json and --ui cannot be combined")
		}
	default:
		return fmt.Errorf("unknown command %q (expected serve, check or watch)", opts.command)
	}
	return nil
}
