package helpers

import (
	"fmt"
	"io"
)

// MustFprintln writes to w and panics if the write fails. It is only used for console and
// report output, where a failed write means there is nowhere left to report anything.
func MustFprintln(w io.Writer, a ...any) {
	if _, err := fmt.Fprintln(w, a...); err != nil {
		panic(err)
	}
}

// MustFprintf is the formatted variant of MustFprintln.
func MustFprintf(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err)
	}
}
