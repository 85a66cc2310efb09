package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyRepo       = "repository"
	KeyPath       = "path"
	KeyMode       = "mode"
	KeyKind       = "kind"
	KeyBackend    = "backend"
	KeyCommits    = "commits"
	KeyDurationMS = "duration_ms"
	KeyRunID      = "run_id"
	KeyError      = "error"
)

func Repository(r string) slog.Attr { return slog.String(KeyRepo, r) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Mode(m string) slog.Attr       { return slog.String(KeyMode, m) }
func Kind(k string) slog.Attr       { return slog.String(KeyKind, k) }
func Backend(b string) slog.Attr    { return slog.String(KeyBackend, b) }
func Commits(n int) slog.Attr       { return slog.Int(KeyCommits, n) }
func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
