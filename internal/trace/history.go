package trace

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
)

// History keeps the trace lines seen so far and answers
// TraceHistoryRequest with a copy of them and the newest Seq.
//
// Lines arrive on the producer goroutine and requests on the UI goroutine,
// so all access goes through mu.
type History struct {
	mu      sync.Mutex
	lines   []string
	lastSeq uint64
	limit   int

	scope  *event.Scope
	logger zerolog.Logger
}

// NewHistory creates a history keeping at most limit lines. A limit of
// zero or less keeps everything.
func NewHistory(limit int, logger zerolog.Logger) *History {
	return &History{limit: limit, logger: logger}
}

// Attach subscribes to Trace and TraceHistoryRequest.
func (h *History) Attach(bus event.Subscriber) error {
	h.scope = event.NewScope(bus, "trace.history")

	if _, err := event.ScopeSubscribe(h.scope, func(_ context.Context, m messages.Trace) error {
		h.Append(m.Seq, m.Line)
		h.logger.Debug().Uint64("seq", m.Seq).Str("line", m.Line).Msg("trace")
		return nil
	}); err != nil {
		_ = h.scope.Close()
		return err
	}

	if _, err := event.SubscribeRequest(bus, h.scope.Owner(),
		func(context.Context, messages.TraceHistoryRequest) (messages.TraceHistory, bool, error) {
			return h.Snapshot(), true, nil
		}); err != nil {
		_ = h.scope.Close()
		return err
	}
	return nil
}

// Detach releases the bus subscriptions.
func (h *History) Detach() {
	if h.scope != nil {
		_ = h.scope.Close()
	}
}

// Append records the line of trace seq, evicting the oldest beyond the
// limit.
func (h *History) Append(seq uint64, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, line)
	if seq > h.lastSeq {
		h.lastSeq = seq
	}
	if h.limit > 0 && len(h.lines) > h.limit {
		drop := len(h.lines) - h.limit
		h.lines = append(h.lines[:0:0], h.lines[drop:]...)
	}
}

// Snapshot returns a copy of the recorded lines, oldest first, with the
// Seq of the newest.
func (h *History) Snapshot() messages.TraceHistory {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return messages.TraceHistory{Lines: out, LastSeq: h.lastSeq}
}
