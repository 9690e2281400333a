// Package cliui renders indexing progress to a terminal, either as a
// live spinner-and-progress-bar view on a TTY or as plain log lines
// when output is redirected.
package cliui

import "time"

// Stage is one step of the indexing pipeline, in execution order.
type Stage int

const (
	StageScanning Stage = iota
	StageChunking
	StageTopics
	StageEmbedding
	StageStoring
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageChunking:
		return "Chunking"
	case StageTopics:
		return "Topics"
	case StageEmbedding:
		return "Embedding"
	case StageStoring:
		return "Storing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon is the short stage tag used in plain-text output lines.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageChunking:
		return "CHUNK"
	case StageTopics:
		return "TOPIC"
	case StageEmbedding:
		return "EMBED"
	case StageStoring:
		return "STORE"
	case StageComplete:
		return "DONE"
	default:
		return "????"
	}
}

// Event reports progress within the current stage.
type Event struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent reports a per-file failure or warning encountered mid-run.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// Stats summarizes a completed indexing job for the final report line.
type Stats struct {
	Files     int
	Snippets  int
	Duration  time.Duration
	Errors    int
	Warnings  int
}
