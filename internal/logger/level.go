package logger

import (
	"log/slog"
	"strings"
)

const (
	levelNotice  = slog.Level(2)
	levelDisable = slog.Level(99)
)

var (
	customLevels = map[slog.Leveler]string{
		levelNotice: "NOTICE",
	}
	customLevelsTerm = map[slog.Leveler]string{
		levelNotice: "\u001B[34m" + "NTC" + "\u001B[0m",
	}
)

// Level is the process-wide minimum level for every logger built by New.
var Level = &level{lvl: &slog.LevelVar{}}

type level struct {
	lvl *slog.LevelVar
}

func (l *level) Enabled(level slog.Level) bool {
	return level >= l.lvl.Level()
}

func (l *level) Set(level slog.Level) {
	l.lvl.Set(level)
}

// SetByName sets the level from its name. Unknown names leave it unchanged
// and return false.
func (l *level) SetByName(name string) bool {
	lvl, ok := ParseLevel(name)
	if ok {
		l.lvl.Set(lvl)
	}
	return ok
}

// ParseLevel maps a level name to a slog level.
// "emergency", "alert" and "critical" silence logging entirely.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "err", "error":
		return slog.LevelError, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "notice":
		return levelNotice, true
	case "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "emergency", "alert", "critical":
		return levelDisable, true
	}
	return 0, false
}
