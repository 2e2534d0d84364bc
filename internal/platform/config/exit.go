package config

import (
	"fmt"
	"io"
	"os"
)

var (
	exitWriter io.Writer = os.Stderr
	exit                 = os.Exit
)

// Exitf writes a formatted message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, format+"\n", args...)
	exit(1)
}

// ExitOnError exits through Exitf when err is non-nil, labelling the
// message with what failed.
func ExitOnError(what string, err error) {
	if err == nil {
		return
	}
	Exitf("%s: %v", what, err)
}
