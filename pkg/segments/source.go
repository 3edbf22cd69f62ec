package segments

import (
	"context"
	"time"

	"github.com/dragomanhq/dragoman/pkg/errorsx"
)

// Segment is one recognized utterance from the ASR boundary.
type Segment struct {
	Text     string
	Language string
	At       time.Time
}

// Source delivers recognized speech segments for one call. Push (streaming
// ASR, websocket feed) and poll (scripted) implementations sit behind the
// same cancellable call: NextSegment blocks until a segment arrives, ctx is
// done, or the source is drained.
type Source interface {
	// Start brings up any upstream connection.
	Start(ctx context.Context) error
	// NextSegment returns the next recognized utterance. A drained or
	// closed source returns a source_closed reasoned error.
	NextSegment(ctx context.Context) (Segment, error)
	// Close shuts the source down.
	Close() error
}

// Factory builds a per-call source.
type Factory func(callID string) (Source, error)

// ErrClosed is returned once a source has delivered everything it ever
// will; the monitor task treats it as a normal end of input.
var ErrClosed = errorsx.New(errorsx.ReasonSourceClosed, "segment source closed")
