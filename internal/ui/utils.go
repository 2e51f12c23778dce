package ui

import (
	"io"

	"github.com/fatih/color"
)

// out receives every message; tests swap it for a buffer.
var out io.Writer = color.Output

var (
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
)

// PrintWarning prints a yellow block headed by "Warning:".
func PrintWarning(format string, a ...interface{}) {
	warningColor.Fprintln(out, "\nWarning:")
	warningColor.Fprintf(out, format+"\n", a...)
}

func PrintError(format string, a ...interface{}) {
	errorColor.Fprintf(out, "\nError: "+format+"\n", a...)
}

func PrintSuccess(format string, a ...interface{}) {
	successColor.Fprintf(out, "\n"+format+"\n", a...)
}

// PrintInfo prints a prompt without a trailing newline.
func PrintInfo(format string, a ...interface{}) {
	infoColor.Fprintf(out, format, a...)
}

// printLine writes one green line of a listing.
func printLine(format string, a ...interface{}) {
	successColor.Fprintf(out, format+"\n", a...)
}
