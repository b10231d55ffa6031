/*
Package log provides structured logging for Engram using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all Engram packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (e.g. indexing parse steps)
  - Info: General informational messages (memory created, device authorized)
  - Warn: Warning messages (sync conflict resolved by last-writer-wins)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs (e.g. "memory", "sync")
  - WithMemoryID: Add memory_id context
  - WithDeviceID: Add device_id context
  - WithStream: Add stream context ("memory" or "secrets")

# Usage

	import "github.com/engramhq/engram/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("engram daemon starting")

	memLog := log.WithComponent("memory").With().Str("memory_id", id).Logger()
	memLog.Info().Msg("memory stored")

	syncLog := log.WithStream("secrets")
	syncLog.Warn().Str("device_id", devID).Msg("remote update skipped: tombstoned locally")

# Security

Never log plaintext memory content, secret values, or derived key material.
Log ciphertext lengths, checksums, and IDs instead.
*/
package log
