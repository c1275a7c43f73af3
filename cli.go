package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antibyte/turtleterm/pkg/canvas"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

// Exit codes of the offline commands.
const (
	exitOK     = 0
	exitScript = 1
	exitUsage  = 2
)

// checkCommand validates a script file and prints the first problem.
func checkCommand(out io.Writer, path string) int {
	script, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return exitUsage
	}
	res := turtle.Validate(string(script))
	if res.OK {
		fmt.Fprintf(out, "%s: OK\n", path)
		return exitOK
	}
	fmt.Fprintf(out, "%s:%d: %s: %s\n", path, res.LineNumber, res.KindName, res.Reason)
	if res.UsageHint != "" {
		fmt.Fprintf(out, "    usage: %s\n", res.UsageHint)
	}
	return exitScript
}

// svgCommand runs a script file and writes the drawing as SVG.
func svgCommand(out io.Writer, path, title string) int {
	script, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc, err := canvas.RenderScript(context.Background(), string(script), title)
	if err != nil {
		var se *turtle.ScriptError
		if errors.As(err, &se) {
			line, text := turtle.RootLine(err)
			fmt.Fprintf(os.Stderr, "%s:%d: %v\n", path, se.Line, err)
			if line != se.Line || text != se.Text {
				fmt.Fprintf(os.Stderr, "    in: %s\n", text)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
		return exitScript
	}
	io.WriteString(out, doc)
	return exitOK
}
