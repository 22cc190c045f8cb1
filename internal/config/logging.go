package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below [slog.LevelDebug] and carries wire payloads:
// full Anthropic request/response JSON and raw GraphQL bodies. -8 is
// the value the wider slog ecosystem settled on for trace.
const LevelTrace = slog.Level(-8)

// ParseLogLevel maps the log_level config string to an [slog.Level].
// Matching is case-insensitive and whitespace-trimmed; the empty
// string means info. "warning" is accepted as an alias for "warn".
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames is a [slog.HandlerOptions.ReplaceAttr] hook that
// labels [LevelTrace] records as "TRACE". slog only knows its four
// built-in levels and would otherwise print "DEBUG-4".
func ReplaceLogLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
