package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/batchpdf/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML.
// Only the config file and environment layers apply; convert flags do not.
func runConfigCmd(args []string, env *Environment) int {
	flags, err := parseConfigFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	envCfg, err := loadEnvConfig(env.Getenv)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg, err := loadConfig(flags.config, envCfg)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	applyEnvConfig(envCfg, cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitGeneral
	}
	_, _ = env.Stdout.Write(out)
	return ExitSuccess
}
