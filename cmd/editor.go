package cmd

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/term"

	"ghostbridge/bridge"
)

const clearScreen = "\x1b[H\x1b[2J"

// newStdoutEditor prints each browser buffer to w.  On a terminal the
// screen is cleared first, so it always shows just the current text.
func newStdoutEditor(w io.Writer) bridge.WriteBufferFunc {
	clearFirst := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		clearFirst = term.IsTerminal(int(f.Fd()))
	}
	var mu sync.Mutex
	return func(text string) {
		mu.Lock()
		defer mu.Unlock()
		if clearFirst {
			io.WriteString(w, clearScreen) //nolint:errcheck
		}
		fmt.Fprintln(w, text)
	}
}
