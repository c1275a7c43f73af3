package turtle

import (
	"sort"
	"strings"
)

// commandUsageHints holds the syntax line shown for every keyword.
var commandUsageHints = map[string]string{
	"moveto":    "moveto <x> <y>",
	"drawto":    "drawto <x> <y>",
	"rectangle": "rectangle <w> <h>",
	"square":    "square <size>",
	"circle":    "circle <r>",
	"triangle":  "triangle <x1> <y1> <x2> <y2> <x3> <y3>",
	"color":     "color <name|#rrggbb>",
	"pen":       "pen <name|#rrggbb>",
	"textcolor": "textcolor <name|#rrggbb>",
	"reset":     "reset",
	"fill":      "fill on|off",
	"linewidth": "linewidth <w>",
	"rotate":    "rotate <degrees>",
	"text":      "text <free text...>",
	"print":     "print <free text...>",
	"clear":     "clear",
	"var":       "var <name> <value>",
	"set":       "set <name> <value>",
	"if":        "if <lhs> <op> <rhs>   (op: > >= < <= == !=)",
	"endif":     "endif",
	"loop":      "loop",
	"endloop":   "endloop",
	"method":    "method <name> [param...]",
	"endmethod": "endmethod",
}

// GetCommandUsageHint returns the syntax line for keyword, or "".
func GetCommandUsageHint(keyword string) string {
	return commandUsageHints[strings.ToLower(strings.TrimSpace(keyword))]
}

// HelpText lists every command's syntax, sorted by keyword, followed by
// the method call forms.
func HelpText() []string {
	keys := make([]string, 0, len(commandUsageHints))
	for k := range commandUsageHints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		lines = append(lines, commandUsageHints[k])
	}
	lines = append(lines, "<name>()", "<name>(<arg>, ...)")
	return lines
}
