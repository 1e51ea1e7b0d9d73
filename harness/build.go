package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/weiihann/microbench/hostconfig"
)

// ResolveBinary returns the worker binary path for a target: its
// configured binary, or the build output under binDir.
func ResolveBinary(binDir string, t hostconfig.Target) string {
	if t.Binary != "" {
		return t.Binary
	}

	name := t.Name + "-worker"
	if t.Kind == hostconfig.KindWASI || t.Kind == hostconfig.KindJS {
		name += ".wasm"
	}

	return filepath.Join(binDir, name)
}

// buildEnv is the environment a target's worker is compiled with.
func buildEnv(t hostconfig.Target) []string {
	switch t.Kind {
	case hostconfig.KindWASI:
		return []string{"GOOS=wasip1", "GOARCH=wasm"}
	case hostconfig.KindJS:
		return []string{"GOOS=js", "GOARCH=wasm"}
	default:
		return nil
	}
}

// Build compiles the worker for t with the go toolchain, run from
// moduleDir. Targets with a prebuilt binary are only checked for
// existence.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	moduleDir, binDir string,
	t hostconfig.Target,
) (string, error) {
	binPath := ResolveBinary(binDir, t)

	if t.Binary != "" {
		if _, err := os.Stat(binPath); err != nil {
			return "", fmt.Errorf("worker binary for %s: %w", t.Name, err)
		}

		return binPath, nil
	}

	logger.InfoContext(ctx, "building worker",
		slog.String("target", t.Name),
		slog.String("kind", string(t.Kind)),
		slog.String("package", t.Package),
	)

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("create bin dir %s: %w", binDir, err)
	}

	cmd := exec.CommandContext(ctx, "go", "build", "-o", binPath, t.Package)
	cmd.Dir = moduleDir
	if env := buildEnv(t); len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", t.Name, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", t.Name, binPath,
		)
	}

	logger.InfoContext(ctx, "worker built",
		slog.String("target", t.Name),
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// CommandConfig holds the resolved command, extra arguments, and
// environment variables needed to run a worker binary.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// defaultWASIRunner mounts the host root so the worker can read hand-off
// files and write reports by absolute path.
var defaultWASIRunner = []string{"wazero", "run", "-mount=/:/"}

// WrapCommand returns the exec configuration needed to run a worker
// binary. Native workers run directly; wasm workers run through the
// target's runner command.
func WrapCommand(t hostconfig.Target, binPath string) (CommandConfig, error) {
	runner := t.Runner
	if len(runner) == 0 {
		switch t.Kind {
		case hostconfig.KindWASI:
			runner = defaultWASIRunner
		case hostconfig.KindJS:
			return CommandConfig{}, fmt.Errorf("target %s: js targets need a runner command", t.Name)
		}
	}

	cc := CommandConfig{Binary: binPath, Env: envList(t.Env)}

	if len(runner) > 0 {
		cc.Binary = runner[0]
		cc.ExtraArgs = append(slices.Clone(runner[1:]), binPath)
	}
	cc.ExtraArgs = append(cc.ExtraArgs, t.Args...)

	return cc, nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}

	return out
}
