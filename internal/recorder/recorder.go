package recorder

import (
	"time"

	"SignalFoundry/internal/pipeline"
)

// RunSnapshot holds one pipeline run and its provenance.
type RunSnapshot struct {
	Symbol    string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Result    *pipeline.Result
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	Close() error
}
