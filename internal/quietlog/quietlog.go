// Package quietlog discards the standard logger's output while package
// initialisation runs. github.com/sugarme/tokenizer logs its cache
// directory from init; importing this package first keeps that line off
// stderr. Call Restore once main starts.
package quietlog

import (
	"io"
	"log"
)

func init() {
	log.SetOutput(io.Discard)
}

// Restore points the standard logger back at w.
func Restore(w io.Writer) {
	log.SetOutput(w)
}
