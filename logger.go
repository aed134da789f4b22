package viewport

import (
	"log/slog"

	"github.com/pathoview/viewport/internal/vlog"
)

// SetLogger configures the logger for viewport and all its sub-packages.
// By default, viewport produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by viewport:
//   - [slog.LevelDebug]: cache misses, simplification fallbacks, composite
//     statistics and per-frame timings
//   - [slog.LevelWarn]: objects skipped because painting them failed, and
//     frames painted without overlays because the view transform is
//     degenerate
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	viewport.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	vlog.SetLogger(l)
}

// Logger returns the current logger used by viewport.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return vlog.Logger()
}
