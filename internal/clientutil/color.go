package clientutil

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ColorEnabled reports whether ANSI status coloring should be used for
// this process's stdout: only when it's a real terminal, the common
// guard for CLI output libraries built on go-isatty.
func ColorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

const (
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Status renders ok/err-style status text, colored only when stdout is
// a terminal.
func Status(ok bool, text string) string {
	if !ColorEnabled() {
		return text
	}
	color := colorGreen
	if !ok {
		color = colorRed
	}
	return fmt.Sprintf("%s%s%s", color, text, colorReset)
}
