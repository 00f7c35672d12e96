package checker

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// startProgress shows a spinner on w while probes run and returns its stop
// function. Nothing is drawn unless enabled and w is a terminal.
func startProgress(w *os.File, enabled bool, suffix string) func() {
	if w == nil || !enabled || !term.IsTerminal(int(w.Fd())) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()

	return s.Stop
}
