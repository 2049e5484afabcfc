// Package run drives the full compiler pipeline — load, lower, type-check,
// generate — and, for `ergo run`, hands the emitted C to the host's C
// compiler and executes the result. This is the Go-native equivalent of
// original_source/src/ergo/main.py's load_project + run-mode glue.
package run

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/check"
	"github.com/lainsce/ergo/internal/codegen"
	"github.com/lainsce/ergo/internal/loader"
	"github.com/lainsce/ergo/internal/lower"
)

// Result holds every artifact produced along the pipeline, so callers
// (cmd/ergo's default mode, --emit-c, `run`, and the repl shell) can each
// pick the stage they need without recomputing earlier ones.
type Result struct {
	Program *ast.Program
	Env     *check.GlobalEnv
	C       string
}

// Compile loads entryPath and every module it brings, lowers each module,
// type-checks the whole program, and generates its C translation unit.
func Compile(entryPath string) (*Result, error) {
	prog, err := loader.Load(entryPath)
	if err != nil {
		return nil, err
	}
	for _, mod := range prog.Mods {
		lower.Module(mod)
	}
	env, err := check.TypecheckProgram(prog)
	if err != nil {
		return nil, err
	}
	src, err := codegen.Generate(prog, env)
	if err != nil {
		return nil, err
	}
	return &Result{Program: prog, Env: env, C: src}, nil
}

// ccCommand resolves the C compiler to invoke: the CC environment variable
// if set, otherwise "cc", matching original_source/main.py's `os.environ.
// get("CC", "cc")`.
func ccCommand() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}

// Run compiles entryPath to C, builds it with the host C compiler into a
// temporary binary, then executes that binary with args and the current
// process's stdio, returning its exit code (or an error if the compiler
// or the program itself could not be run at all).
func Run(entryPath string, args []string) (int, error) {
	res, err := Compile(entryPath)
	if err != nil {
		return 1, err
	}

	cc := ccCommand()
	if _, err := exec.LookPath(cc); err != nil {
		return 1, fmt.Errorf("C compiler %q not found on PATH (set $CC to override)", cc)
	}

	dir, err := os.MkdirTemp("", "ergo-build-*")
	if err != nil {
		return 1, err
	}
	defer os.RemoveAll(dir)

	cPath := dir + "/out.c"
	if err := os.WriteFile(cPath, []byte(res.C), 0o644); err != nil {
		return 1, err
	}
	binPath := dir + "/out"

	build := exec.Command(cc, "-O3", "-std=c11", cPath, "-o", binPath)
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		return 1, fmt.Errorf("C compilation failed: %w", err)
	}

	run := exec.Command(binPath, args...)
	run.Stdin = os.Stdin
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr
	if err := run.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}

// EmitC compiles entryPath and writes its generated C translation unit to
// outPath.
func EmitC(entryPath, outPath string) error {
	res, err := Compile(entryPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(res.C), 0o644)
}
