package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCompiler    = "compiler"
	KeyCompilation = "compilation_id"
	KeyHook        = "hook"
	KeyPhase       = "phase"
	KeyAsset       = "asset"
	KeyPath        = "path"
	KeyPass        = "pass"
	KeyHash        = "hash"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Compiler(name string) slog.Attr  { return slog.String(KeyCompiler, name) }
func Compilation(id string) slog.Attr { return slog.String(KeyCompilation, id) }
func Hook(name string) slog.Attr      { return slog.String(KeyHook, name) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Asset(name string) slog.Attr     { return slog.String(KeyAsset, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Pass(n int) slog.Attr            { return slog.Int(KeyPass, n) }
func Hash(h string) slog.Attr         { return slog.String(KeyHash, h) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000.0)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
