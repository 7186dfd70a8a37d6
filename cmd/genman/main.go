//go:build ignore

// genman generates the framelag man page.
// Usage: go run cmd/genman/main.go > framelag.1
package main

import (
	"fmt"
	"os"
)

func main() {
	// Use a fixed date for reproducible builds/CI
	date := "October 2026"

	manpage := fmt.Sprintf(`.TH FRAMELAG 1 "%s" "framelag 0.2.0" "User Commands"
.SH NAME
framelag \- watch frame cadence and report janky frames
.SH SYNOPSIS
.B framelag
[\fIflags\fR] [\-\- \fIcommand\fR [\fIargs...\fR]]
.SH DESCRIPTION
.B framelag
measures the interval between successive frames and logs a warning when a
frame arrives much later than the display's refresh rate allows.
.PP
Without a command, frames come from a simulated display that ticks at the
configured rate, optionally with jitter and periodic stalls. With a command,
the command runs in a pseudo-terminal (PTY) and every burst of output it
produces counts as one frame.
.PP
A frame is bad when it took longer than a quarter second's worth of ideal
frames (at 60 Hz, about 250 ms). At most ten bad frames in a row are
reported; the next good frame re-arms reporting.
.SH OPTIONS
.TP
.BR \-f ", " \-\-config " \fIfile\fR"
Read settings from a YAML file. See \fBCONFIGURATION\fR.
.TP
.B \-\-hz \fIrate\fR
Nominal refresh rate in Hz (default 60). Replaces any profile schedule.
.TP
.BR \-p ", " \-\-profile " \fIname\fR"
Use a preset display profile. See \fBPROFILES\fR section.
.TP
.BR \-j ", " \-\-jitter " \fIduration\fR"
Delay each simulated frame by a uniform random amount in [0, 2*jitter].
.TP
.B \-\-stall \fIduration\fR
Length of a simulated stall. Example: \fB\-\-stall 400ms\fR
.TP
.B \-\-stall\-every \fIn\fR
Stall after every \fIn\fR simulated frames (0 = never).
.TP
.B \-\-seed \fIint\fR
Random seed for jitter (0 = random). Useful for reproducible testing.
.TP
.BR \-t ", " \-\-duration " \fIduration\fR"
Stop after this long. In PTY mode the command is sent SIGTERM.
.TP
.B \-\-refresh\-every \fIduration\fR
How often the refresh rate is re-read (default 1s).
.TP
.BR \-l ", " \-\-log\-level " \fIlevel\fR"
One of err, warn, notice, info, debug (default info).
.TP
.B \-\-log\-file \fIpath\fR
Append logs to a file instead of stderr.
.TP
.B \-\-log\-buffer \fIn\fR
Diagnostic records held before new ones are dropped (default 256).
.TP
.B \-\-log\-rate \fIn\fR
Diagnostic records accepted per second (0 = unlimited).
.TP
.BR \-L ", " \-\-list\-profiles
List available profiles.
.TP
.BR \-h ", " \-\-help
Show help message.
.TP
.BR \-v ", " \-\-version
Show version information.
.SH PROFILES
.SS Broadcast
.TP
.B film
24 Hz cinema cadence
.TP
.B pal
50 Hz PAL television
.TP
.B ntsc
59.94 Hz NTSC television
.SS Panels
.TP
.B 60hz\fR, \fB90hz\fR, \fB120hz\fR, \fB144hz
Fixed-rate panels
.SS Variable
.TP
.B vrr
60, 120 then 90 Hz, repeating every 15 seconds, 1ms jitter
.SS Degraded
.TP
.B janky
60 Hz with a 400ms stall every 120 frames
.TP
.B hitchy
60 Hz, 6ms jitter, 300ms stall every 300 frames
.SH CONFIGURATION
Settings are applied in order: built-in defaults, the config file, the
profile, then explicit flags.
.PP
.RS
.nf
display:
  hz: 60
  profile: ""
  schedule: [{after: 0s, hz: 60}, {after: 5s, hz: 120}]
  period: 10s
simulate:
  jitter: 2ms
  stall_every: 300
  stall: 400ms
  seed: 0
log:
  level: info
  file: ""
  buffer: 256
  rate: 50
  burst: 20
refresh_every: 1s
duration: 0s
.fi
.RE
.PP
Unknown keys are rejected.
.SH SIGNALS
.TP
.B SIGHUP
Re-read the config file and command line; apply the new rate and log level.
.TP
.BR SIGINT ", " SIGTERM
Stop monitoring. In PTY mode the signal is forwarded to the command.
.TP
.B SIGWINCH
Propagated to the PTY.
.SH EXAMPLES
A display that stalls every two seconds:
.PP
.RS
.nf
framelag \-\-profile janky \-t 10s
.fi
.RE
.PP
Watch a program's redraw cadence:
.PP
.RS
.nf
framelag \-\-hz 30 \-\- htop
.fi
.RE
.PP
Deterministic jitter for testing:
.PP
.RS
.nf
framelag \-\-hz 144 \-\-jitter 2ms \-\-seed 12345 \-t 5s
.fi
.RE
.SH EXIT STATUS
.B framelag
exits with the exit status of the wrapped command, 0 when a simulation ends,
or 1 if an error occurs.
.SH NOTES
.IP \(bu 2
Raw mode is only enabled when both stdin and stdout are terminals.
.IP \(bu 2
When stdout is not a terminal, LF is not translated to CR LF.
.IP \(bu 2
A total stall (no frames at all) produces no report.
.SH SEE ALSO
.BR ttyrec (1),
.BR script (1)
`, date)

	fmt.Fprint(os.Stdout, manpage)
}
