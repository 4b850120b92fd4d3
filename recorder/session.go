// Copyright © 2023 Sloan Childers
package recorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/metallurk/cctv/base"
)

// Session is one output file. Its writer is only touched by the drain worker.
type Session struct {
	ID      string
	Start   time.Time
	Path    string
	writer  base.IWriter
	owed    int
	written int
	dropped int
}

func newSession(start time.Time, config *base.RecordingConfig) *Session {
	return &Session{
		ID:    uuid.NewString(),
		Start: start,
		Path:  base.RecordingName(config.Dir, config.Ext, start),
	}
}
