// Package logging provides file-based JSON logging with size-based
// rotation for Codex7. Logs go to ~/.codex7/logs/server.log at the
// configured level (debug when --debug is set). The index, search and
// versions commands also copy them to stderr; `codex7 serve` writes to
// the file only, since stdout carries the MCP protocol.
package logging
