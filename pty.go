//go:build !windows
// +build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sourcegraph/conc"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/cbrunnkvist/framelag/monitor"
)

const ptyReadSize = 32 * 1024

// copyFrames copies src to dst and offers the time of every read to vsync.
// A frame is skipped when the loop has not taken the previous one yet, so
// slow monitoring never slows the output. vsync is closed on return.
func copyFrames(dst io.Writer, src io.Reader, vsync chan<- int64) error {
	defer close(vsync)

	buf := make([]byte, ptyReadSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			select {
			case vsync <- monitor.Nanotime():
			default:
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) {
				// EIO: slave side closed on Linux
				return nil
			}
			return err
		}
	}
}

func runPTY(opts *Options) (int, error) {
	// Get terminal info
	stdinIsTerminal := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutIsTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	rawMode := stdinIsTerminal && stdoutIsTerminal
	width, height := getTerminalSize()

	s, err := newSession(opts, rawMode)
	if err != nil {
		return 1, err
	}
	defer s.close()

	// Create the command
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)

	// Start with PTY
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(height),
		Cols: uint16(width),
	})
	if err != nil {
		return 1, fmt.Errorf("starting pty: %w", err)
	}

	// When stdout is not a terminal (piping/redirecting), disable ONLCR on the
	// PTY so piped output carries LF rather than CR+LF.
	if !stdoutIsTerminal {
		if termios, err := unix.IoctlGetTermios(int(ptmx.Fd()), ioctlGetTermios); err == nil {
			termios.Oflag &^= unix.ONLCR
			unix.IoctlSetTermios(int(ptmx.Fd()), ioctlSetTermios, termios)
		}
	}

	// Raw mode only if BOTH stdin and stdout are terminals
	var oldState *term.State
	if rawMode {
		oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			ptmx.Close()
			return 1, fmt.Errorf("setting raw mode: %w", err)
		}
	}

	// Ensure terminal restoration on exit (only if we changed it)
	restoreTerminal := func() {
		if oldState != nil {
			term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}
	defer restoreTerminal()

	// Input stops as soon as the child exits; output and the monitor keep
	// going until the PTY is drained.
	inCtx, inCancel := context.WithCancel(context.Background())
	monCtx, monCancel := context.WithCancel(context.Background())
	defer inCancel()
	defer monCancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	var wg conc.WaitGroup

	// stdin -> PTY
	wg.Go(func() {
		copyInput(inCtx, ptmx, os.Stdin)
	})

	// PTY -> stdout, one frame per read
	vsync := make(chan int64, 1)
	outDone := make(chan struct{})
	wg.Go(func() {
		defer close(outDone)
		if err := copyFrames(os.Stdout, ptmx, vsync); err != nil {
			s.log.Debug("output copy ended", "err", err)
		}
	})

	// Monitor
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		s.run(monCtx, vsync)
	}()

	// Signal handler goroutine
	wg.Go(func() {
		var timeout <-chan time.Time
		if opts.Duration > 0 {
			timeout = time.After(opts.Duration)
		}
		for {
			select {
			case <-inCtx.Done():
				return
			case <-timeout:
				s.log.Info("duration elapsed, terminating command", "duration", opts.Duration)
				if cmd.Process != nil {
					syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
				}
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGWINCH:
					// Propagate terminal size change to PTY
					w, h, err := term.GetSize(int(os.Stdin.Fd()))
					if err == nil {
						pty.Setsize(ptmx, &pty.Winsize{
							Rows: uint16(h),
							Cols: uint16(w),
						})
					}
				case syscall.SIGINT, syscall.SIGTERM:
					// Forward signal to child process group
					if cmd.Process != nil {
						syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
					}
				}
			}
		}
	})

	// Wait for child process
	waitErr := cmd.Wait()

	// Stop forwarding input (may be blocked on stdin)
	inCancel()

	// Let the output drain; the monitor ends when the PTY closes
	select {
	case <-outDone:
	case <-time.After(drainTimeout):
		s.log.Warn("output did not drain in time", "timeout", drainTimeout)
		ptmx.Close()
	}
	monCancel()
	<-monDone

	// Wait for all goroutines with a short timeout
	waitWithTimeout(&wg, goroutineExitWait)

	// Now close PTY (for cleanup)
	ptmx.Close()

	// Restore terminal before exiting
	restoreTerminal()

	// Determine exit code
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, waitErr
	}
	return 0, nil
}

// copyInput forwards src to dst until ctx is cancelled or src ends.
// A read blocked on a terminal cannot be interrupted; the goroutine is
// abandoned at exit.
func copyInput(ctx context.Context, dst io.Writer, src io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
