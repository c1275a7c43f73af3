package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/antibyte/turtleterm/pkg/canvas"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

const (
	historyFile = ".turtleterm_history"
	promptMain  = "turtle> "
	promptCont  = "...     "
)

const replBanner = "turtleterm REPL. Blocks continue until closed. Type :help for commands, :quit to exit."

var replCommands = []string{
	":help           command reference",
	":vars           list variables",
	":methods        list methods",
	":pen            show the pen state",
	":svg <file>     write the drawing so far as SVG",
	":reset          clear drawing and state",
	":quit           exit",
}

var (
	blockOpeners = map[string]bool{"if": true, "loop": true, "method": true}
	blockClosers = map[string]bool{"endif": true, "endloop": true, "endmethod": true}
)

// replSession keeps one interpreter and the drawing it produced.
type replSession struct {
	it      *turtle.Interpreter
	rec     *canvas.Recorder
	pending []string
	depth   int
}

func newREPLSession() *replSession {
	rec := canvas.NewRecorder()
	return &replSession{it: turtle.NewInterpreter(rec), rec: rec}
}

// feed adds a line and returns the buffered chunk once every block opened
// in it has been closed.
func (s *replSession) feed(line string) (string, bool) {
	s.pending = append(s.pending, line)
	fields := strings.Fields(line)
	if len(fields) > 0 {
		kw := strings.ToLower(fields[0])
		switch {
		case blockOpeners[kw]:
			s.depth++
		case blockClosers[kw] && s.depth > 0:
			s.depth--
		}
	}
	if s.depth > 0 {
		return "", false
	}
	chunk := strings.Join(s.pending, "\n")
	s.pending = nil
	return chunk, true
}

// eval runs a chunk against the session state and describes what it drew.
func (s *replSession) eval(ctx context.Context, chunk string) (string, error) {
	before := s.rec.Len()
	if err := s.it.Continue(ctx, chunk); err != nil {
		return "", err
	}
	counts := make(map[string]int)
	for _, op := range s.rec.Ops()[before:] {
		if op.Kind == canvas.OpRefresh || op.Kind == canvas.OpMove {
			continue
		}
		counts[op.Kind.String()]++
	}
	if len(counts) == 0 {
		return "", nil
	}
	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
	}
	sort.Strings(kinds)
	return "drew " + strings.Join(kinds, ", "), nil
}

// command handles a colon command and reports whether the REPL should exit.
func (s *replSession) command(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		for _, l := range turtle.HelpText() {
			fmt.Fprintln(out, "  "+l)
		}
		for _, l := range replCommands {
			fmt.Fprintln(out, "  "+l)
		}
	case ":vars":
		names := s.it.VariableNames()
		sort.Strings(names)
		for _, name := range names {
			v, _ := s.it.Variable(name)
			fmt.Fprintf(out, "  %s = %g\n", name, v)
		}
	case ":methods":
		names := s.it.MethodNames()
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
	case ":pen":
		p := s.it.Pen()
		fmt.Fprintf(out, "  at (%g, %g) color %s width %g fill %t rotation %g\n",
			p.Position.X, p.Position.Y, p.Color.Hex(), p.Width, p.Fill, p.Rotation)
	case ":svg":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: :svg <file>")
			return false
		}
		if err := s.writeSVG(fields[1]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "wrote %s\n", fields[1])
	case ":reset":
		s.it.Reset()
		s.rec.Reset()
		s.pending, s.depth = nil, 0
	default:
		fmt.Fprintf(out, "unknown command %s, try :help\n", fields[0])
	}
	return false
}

func (s *replSession) writeSVG(path string) error {
	c := canvas.NewSVGCanvas(canvas.DefaultSize())
	c.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s.rec.Replay(c)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// replCommand runs the interactive prompt until :quit or end of input.
func replCommand() int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println(replBanner)
	s := newREPLSession()
	for {
		prompt := promptMain
		if s.depth > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			s.pending, s.depth = nil, 0
			continue
		}
		if err != nil {
			fmt.Println()
			return exitOK
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && s.depth == 0 {
			continue
		}
		ln.AppendHistory(line)

		if s.depth == 0 && strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed, os.Stdout) {
				return exitOK
			}
			continue
		}

		chunk, ready := s.feed(line)
		if !ready {
			continue
		}
		summary, err := s.eval(context.Background(), chunk)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			var te *turtle.Error
			if errors.As(err, &te) && te.UsageHint != "" {
				fmt.Printf("usage: %s\n", te.UsageHint)
			}
			continue
		}
		if summary != "" {
			fmt.Println(summary)
		}
	}
}
