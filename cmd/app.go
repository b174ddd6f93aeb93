// Package cmd implements the rk command line application: transfer
// reconciliation across bank accounts and capital gains reports.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&reconcileCmd{}, "reconciliation")
	c.Register(&normalizeCmd{}, "reconciliation")

	c.Register(&gainsCmd{}, "capital gains")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var plain = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal")
var wordWrap = flag.Int("wrap", 120, "Word wrap width of rendered markdown")

// stdout is where reports are written.
var stdout io.Writer = os.Stdout

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(md string) {
	if *plain {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(*wordWrap))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
