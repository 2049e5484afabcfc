// Package replshell implements `ergo repl <source.e>`, an interactive shell
// over the compiler pipeline: it re-runs load/lower/typecheck against the
// named entry file on demand and lets the user inspect each stage, rather
// than evaluating expressions the way the teacher's repl.Repl evaluates
// Go-Mix source live. Grounded on that package's banner/prompt/history
// shape (internal/replshell mirrors repl.Repl's field set and Start loop).
package replshell

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/lainsce/ergo/internal/lexer"
	"github.com/lainsce/ergo/internal/loader"
	"github.com/lainsce/ergo/internal/run"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Shell holds one inspection session over a fixed entry file. Unlike the
// teacher's Repl, each line of input is a shell command, not a program
// fragment — there is no incremental expression evaluator in an
// ahead-of-time compiler, so the shell's "eval" is "recompile and show me
// a stage."
type Shell struct {
	EntryPath string
	Version   string
	Author    string
	License   string
	Prompt    string

	last *run.Result
}

// New builds a Shell over entryPath.
func New(entryPath, version, author, license string) *Shell {
	return &Shell{
		EntryPath: entryPath,
		Version:   version,
		Author:    author,
		License:   license,
		Prompt:    "ergo> ",
	}
}

func (s *Shell) printBanner(w io.Writer) {
	line := strings.Repeat("-", 60)
	blueColor.Fprintf(w, "%s\n", line)
	greenColor.Fprintf(w, "ergo repl — inspecting %s\n", s.EntryPath)
	blueColor.Fprintf(w, "%s\n", line)
	yellowColor.Fprintln(w, "Version: "+s.Version+" | Author: "+s.Author+" | License: "+s.License)
	blueColor.Fprintf(w, "%s\n", line)
	cyanColor.Fprintln(w, "Commands: :reload  :tokens  :ast  :c  :exit")
	cyanColor.Fprintln(w, "The entry file is recompiled on :reload and on startup.")
	blueColor.Fprintf(w, "%s\n", line)
}

// Start runs the shell's main loop, reading commands from the terminal via
// readline and writing output to writer. The reader argument is not read.
func (s *Shell) Start(reader io.Reader, writer io.Writer) {
	s.printBanner(writer)

	rl, err := readline.New(s.Prompt)
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	s.reload(writer)

	for {
		line, err := rl.Readline()
		if err != nil {
			writer.Write([]byte("Good Bye!\n"))
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":exit" || line == ".exit" {
			writer.Write([]byte("Good Bye!\n"))
			break
		}
		rl.SaveHistory(line)
		s.dispatch(writer, line)
	}
}

func (s *Shell) dispatch(w io.Writer, cmd string) {
	switch cmd {
	case ":reload":
		s.reload(w)
	case ":tokens":
		s.showTokens(w)
	case ":ast":
		s.showAST(w)
	case ":c":
		s.showC(w)
	default:
		redColor.Fprintf(w, "unknown command %q (try :reload :tokens :ast :c :exit)\n", cmd)
	}
}

func (s *Shell) reload(w io.Writer) {
	res, err := run.Compile(s.EntryPath)
	if err != nil {
		redColor.Fprintf(w, "error: %s\n", err.Error())
		s.last = nil
		return
	}
	s.last = res
	greenColor.Fprintf(w, "compiled %s: %d module(s)\n", s.EntryPath, len(res.Program.Mods))
}

func (s *Shell) showTokens(w io.Writer) {
	if s.last == nil {
		redColor.Fprintln(w, "nothing loaded; try :reload")
		return
	}
	for _, mod := range s.last.Program.Mods {
		src, err := loader.ReadSource(mod.Path)
		if err != nil {
			redColor.Fprintf(w, "error: %s\n", err.Error())
			continue
		}
		toks, err := lexer.Lex(mod.Path, src)
		if err != nil {
			redColor.Fprintf(w, "error: %s\n", err.Error())
			continue
		}
		cyanColor.Fprintf(w, "-- %s --\n", mod.Path)
		for _, t := range toks {
			fmt.Fprintf(w, "%-12s %-6d:%-3d %q\n", t.Kind, t.Line, t.Col, t.Text)
		}
	}
}

func (s *Shell) showAST(w io.Writer) {
	if s.last == nil {
		redColor.Fprintln(w, "nothing loaded; try :reload")
		return
	}
	out, err := json.MarshalIndent(s.last.Program, "", "  ")
	if err != nil {
		redColor.Fprintf(w, "error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(w, string(out))
}

func (s *Shell) showC(w io.Writer) {
	if s.last == nil {
		redColor.Fprintln(w, "nothing loaded; try :reload")
		return
	}
	yellowColor.Fprintln(w, s.last.C)
}
