package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

// success prints a green "✓" status line.
func success(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✓ "+format+"\n", args...)
}

// warn prints a yellow "⚠ Warning:" line.
func warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠ Warning: "+format+"\n", args...)
}

func fail(w io.Writer, err error) {
	errColor.Fprint(w, "✗ Error: ")
	fmt.Fprintln(w, err)
}

// newTable returns a borderless table that renders to out.
func newTable(out io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	t.SetStyle(style)
	t.AppendHeader(table.Row(header))
	return t
}
