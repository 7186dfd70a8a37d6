// Package logger builds the slog loggers and the non-blocking diagnostic
// sink used by framelag.
package logger

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

var isJournal = isStderrConnectedToJournal()

// New returns a logger writing to w. Terminals get the colour handler;
// anything else gets logfmt text. Timestamps are dropped when w is stderr
// and stderr goes to the systemd journal, which stamps records itself.
func New(w io.Writer) *slog.Logger {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(newTerminalHandler(w))
	}
	return slog.New(newTextHandler(w, w == io.Writer(os.Stderr) && isJournal))
}
