package diag

import (
	"os"

	"github.com/fatih/color"
)

var colorStderr = os.Stderr

// Color roles for object-file dumps, matching the teacher's per-role
// palette (address/instruction/register/value/hex/error/warning/header).
var (
	Addr    = color.New(color.FgCyan)
	Name    = color.New(color.FgYellow)
	Kind    = color.New(color.FgGreen)
	Value   = color.New(color.FgWhite, color.Bold)
	Hex     = color.New(color.FgMagenta)
	Header  = color.New(color.FgWhite, color.Bold, color.Underline)
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed, color.Bold)
	Dim     = color.New(color.FgHiBlack)
)

// Warnf prints a soft warning (spec §7: rewrite warnings never abort a run)
// to stderr in the warning color.
func Warnf(format string, args ...any) {
	Warning.Fprintf(colorStderr, format+"\n", args...)
}

// Errorf prints a fatal-path error message to stderr in the error color.
func Errorf(format string, args ...any) {
	Error.Fprintf(colorStderr, format+"\n", args...)
}
