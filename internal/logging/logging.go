// Package logging constructs the arbor loggers injected throughout the
// application. Nothing here is global; callers own the logger they receive.
package logging

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// New returns a console logger at the given level ("trace" through "error").
func New(level string) arbor.ILogger {
	return arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			TextOutput: true,
		}).
		WithLevelFromString(level)
}
