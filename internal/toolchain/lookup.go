package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Lookup resolves name on the search path.
func Lookup(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// LookupAll resolves every name and joins the failures, so a missing
// converter and a missing renderer are reported together.
func LookupAll(names ...string) error {
	var errs []error
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Version runs "name --version" and returns the first line of its output.
func Version(ctx context.Context, r Runner, name string) (string, error) {
	res := r.Run(ctx, Invocation{Name: name, Args: []string{"--version"}})
	if err := Classify(name, res); err != nil {
		return "", err
	}

	out := res.Stdout
	if len(strings.TrimSpace(string(out))) == 0 {
		out = res.Stderr
	}
	for line := range strings.Lines(string(out)) {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s: empty version output", name)
}
