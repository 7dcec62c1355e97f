//go:build debug

// Package debug prints recursive descent traces of the DTD parser when
// built with the `debug` tag.
package debug

import (
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
)

const Enabled = true

var logger = log.New(os.Stderr, "|DTD| ", 0)

// Printf prints debug messages. Only available if compiled with "debug" tag
func Printf(f string, args ...any) {
	logger.Printf(f, args...)
}

// Dump writes a go-spew rendering of v to the debug log.
func Dump(v ...any) {
	logger.Print(spew.Sdump(v...))
}
