package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Kind classifies a dispatched message.
type Kind string

const (
	KindDebug      Kind = "debug"
	KindInfo       Kind = "info"
	KindDeprecated Kind = "deprecated"
	KindWarning    Kind = "warning"
	KindError      Kind = "error"
)

// Kinds lists every recognized kind, most severe first.
var Kinds = []Kind{KindError, KindWarning, KindInfo, KindDeprecated, KindDebug}

// Level is the verbosity threshold, 1 (errors only) to 5 (everything).
type Level int

const (
	LevelError      Level = 1
	LevelWarning    Level = 2
	LevelInfo       Level = 3
	LevelDeprecated Level = 4
	LevelDebug      Level = 5

	MinLevel     = LevelError
	MaxLevel     = LevelDebug
	DefaultLevel = LevelInfo
)

// Valid reports whether l lies in [MinLevel, MaxLevel].
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// String returns the name of the most verbose kind shown at this level.
func (l Level) String() string {
	for _, k := range Kinds {
		if k.Threshold() == l {
			return string(k)
		}
	}
	return strconv.Itoa(int(l))
}

// ParseLevel accepts either a number ("3") or a kind name ("info").
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		l := Level(n)
		if !l.Valid() {
			return l, fmt.Errorf("log level %d out of range [%d, %d]", n, MinLevel, MaxLevel)
		}
		return l, nil
	}
	k, err := ParseKind(s)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return k.Threshold(), nil
}

// ParseKind converts a kind name (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown log kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDebug, KindInfo, KindDeprecated, KindWarning, KindError:
		return true
	}
	return false
}

// Threshold is the minimum Level at which k reaches the console.
func (k Kind) Threshold() Level {
	switch k {
	case KindError:
		return LevelError
	case KindWarning:
		return LevelWarning
	case KindInfo:
		return LevelInfo
	case KindDeprecated:
		return LevelDeprecated
	default:
		return LevelDebug
	}
}

// Tag is the uppercased kind used in captured entries and log files.
func (k Kind) Tag() string {
	return strings.ToUpper(string(k))
}

// consolePrefix is prepended to console output only.
func (k Kind) consolePrefix() string {
	switch k {
	case KindDeprecated:
		return "DEPRECATION WARNING: "
	case KindDebug:
		return "DEBUG: "
	default:
		return ""
	}
}

// toStderr reports whether console output for k goes to stderr.
func (k Kind) toStderr() bool {
	switch k {
	case KindError, KindWarning, KindDeprecated:
		return true
	default:
		return false
	}
}

// Records travel through slog with one distinct level per kind so handlers
// can recover the kind from the record alone.
const (
	slogLevelDeprecated = slog.Level(-2)
)

func (k Kind) slogLevel() slog.Level {
	switch k {
	case KindDebug:
		return slog.LevelDebug
	case KindDeprecated:
		return slogLevelDeprecated
	case KindWarning:
		return slog.LevelWarn
	case KindError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func kindFromSlogLevel(level slog.Level) Kind {
	switch {
	case level >= slog.LevelError:
		return KindError
	case level >= slog.LevelWarn:
		return KindWarning
	case level >= slog.LevelInfo:
		return KindInfo
	case level >= slogLevelDeprecated:
		return KindDeprecated
	default:
		return KindDebug
	}
}

// render formats the message and strips trailing newlines; sinks add their own.
func render(format string, args ...any) string {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return strings.TrimRight(msg, "\r\n")
}

// lineBreakEscaper keeps a persisted entry on a single physical line.
var lineBreakEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

// formatLine is the persisted form of one entry. Embedded line breaks are
// written as the two-character escapes \n and \r.
func formatLine(tag, message string) string {
	return tag + ": " + lineBreakEscaper.Replace(message) + "\n"
}
