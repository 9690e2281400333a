package logging

import "log/slog"

// SetupMCPMode initializes logging for `codex7 serve` (MCP stdio transport).
// This is critical for protocol compliance: the MCP stdio transport uses
// stdout exclusively for JSON-RPC frames, so logs must go only to file,
// never to stdout or stderr. Debug level is always on for full diagnostics
// since there is no other channel to observe a failure.
func SetupMCPMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("mcp server logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupMCPModeWithLevel is SetupMCPMode with an explicit level, used when an
// operator wants less noise than full debug while still keeping stdout clean.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
