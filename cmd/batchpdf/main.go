package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Configure GOMAXPROCS with conditional logging
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if slices.Contains(os.Args[1:], "-v") || slices.Contains(os.Args[1:], "--verbose") {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(context.Background(), os.Args, DefaultEnv()))
}

// runMain dispatches to a command and returns the process exit code.
// A first argument that is a flag selects convert, so that
// "batchpdf --target-folder notes" works without the command name.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	if strings.HasPrefix(cmd, "-") {
		switch cmd {
		case "-h", "--help":
			printUsage(env.Stdout)
			return ExitSuccess
		case "--version":
			printVersion(env)
			return ExitSuccess
		}
		cmd, rest = "convert", args[1:]
	}

	switch cmd {
	case "convert":
		return runConvertCmd(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "config":
		return runConfigCmd(rest, env)
	case "version":
		printVersion(env)
		return ExitSuccess
	case "completion":
		if err := runCompletion(rest, env); err != nil {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
			return ExitUsage
		}
		return ExitSuccess
	case "help":
		runHelp(rest, env)
		return ExitSuccess
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

func printVersion(env *Environment) {
	fmt.Fprintf(env.Stdout, "batchpdf %s\n", Version)
}
