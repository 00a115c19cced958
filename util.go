package recdb

import (
	"fmt"
	"log/slog"
)

// slogLogf is the default Store.Options.Logf implementation: it routes
// every store log line through log/slog at debug level, the way the
// teacher's tests wire slog.Default() rather than rolling a bespoke logger.
func slogLogf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}
