// Command ergo is the compiler driver's CLI surface: by default it loads,
// lowers, and type-checks a source file and prints its lowered program as
// JSON (mirroring original_source/src/ergo/main.py's default mode); `--emit-c`
// writes the generated C translation unit instead; `run` additionally
// builds and executes it; `repl` opens an inspection shell over the same
// pipeline. Diagnostics follow the teacher's red/cyan color convention.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/lainsce/ergo/internal/errs"
	"github.com/lainsce/ergo/internal/replshell"
	"github.com/lainsce/ergo/internal/run"
)

var (
	redColor  = color.New(color.FgRed)
	cyanColor = color.New(color.FgCyan)
)

const (
	version = "v0.1.0"
	author  = "lainsce"
	license = "MIT"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h":
		showHelp()
		return
	case "--version", "-v":
		showVersion()
		return
	case "run":
		if len(os.Args) < 3 {
			redColor.Fprintln(os.Stderr, "usage: ergo run <source.e> [args...]")
			os.Exit(1)
		}
		code, err := run.Run(os.Args[2], os.Args[3:])
		if err != nil {
			reportError(err)
		}
		os.Exit(code)
	case "repl":
		if len(os.Args) < 3 {
			redColor.Fprintln(os.Stderr, "usage: ergo repl <source.e>")
			os.Exit(1)
		}
		replshell.New(os.Args[2], version, author, license).Start(os.Stdin, os.Stdout)
		return
	}

	entry := os.Args[1]
	emitC := ""
	for i := 2; i < len(os.Args); i++ {
		if os.Args[i] == "--emit-c" && i+1 < len(os.Args) {
			emitC = os.Args[i+1]
			i++
		}
	}

	if emitC != "" {
		if err := run.EmitC(entry, emitC); err != nil {
			reportError(err)
		}
		return
	}

	res, err := run.Compile(entry)
	if err != nil {
		reportError(err)
	}
	out, jerr := json.MarshalIndent(res.Program, "", "  ")
	if jerr != nil {
		reportError(jerr)
	}
	fmt.Println(string(out))
}

// reportError prints err in the shape "error: <message>" and exits 1,
// matching the reference's uniform (LexErr, ParseErr, TypeErr) handler.
func reportError(err error) {
	switch err.(type) {
	case *errs.LexError, *errs.ParseError, *errs.TypeError:
		redColor.Fprintf(os.Stderr, "error: %s\n", err.Error())
	default:
		redColor.Fprintf(os.Stderr, "error: %s\n", err.Error())
	}
	os.Exit(1)
}

func showHelp() {
	cyanColor.Println("ergo - a small ahead-of-time compiled language")
	cyanColor.Println("")
	cyanColor.Println("USAGE:")
	fmt.Println("  ergo <source.e>                 type-check and print the lowered program as JSON")
	fmt.Println("  ergo <source.e> --emit-c <out>   write the generated C translation unit to <out>")
	fmt.Println("  ergo run <source.e> [args...]    compile, build with $CC, and execute")
	fmt.Println("  ergo repl <source.e>             open an inspection shell over the pipeline")
	fmt.Println("  ergo --help                      show this message")
	fmt.Println("  ergo --version                   show version information")
}

func showVersion() {
	cyanColor.Printf("ergo %s (%s license)\n", version, license)
}
