package config

import (
	"fmt"
	"io"
	"os"
)

var exitFunc = os.Exit
var exitW io.Writer = os.Stderr

// Exitf writes a formatted error message to stderr and exits with code 1.
// Command entry points use it for unrecoverable startup failures.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitW, format+"\n", args...)
	exitFunc(1)
}
