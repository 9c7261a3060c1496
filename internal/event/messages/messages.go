package messages

import (
	"time"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/topic"
)

// Message kinds.
const (
	KindCloseWindow         topic.Topic = "window.close"
	KindWindowClosed        topic.Topic = "window.closed"
	KindShutdown            topic.Topic = "app.shutdown"
	KindTrace               topic.Topic = "trace.event"
	KindTraceHistoryRequest topic.Topic = "trace.history.request"
)

// CloseWindow asks auxiliary windows to close without ending the process.
type CloseWindow struct {
	Value bool
}

// Kind implements event.Message.
func (CloseWindow) Kind() topic.Topic { return KindCloseWindow }

// WindowClosed acknowledges that a window finished closing.
type WindowClosed struct {
	Value    bool
	WindowID string
}

// Kind implements event.Message.
func (WindowClosed) Kind() topic.Topic { return KindWindowClosed }

// Shutdown announces process-wide teardown.
type Shutdown struct{}

// Kind implements event.Message.
func (Shutdown) Kind() topic.Topic { return KindShutdown }

// Trace carries one formatted line from the background producer.
type Trace struct {
	Line string
	Seq  uint64
	At   time.Time
}

// Kind implements event.Message.
func (Trace) Kind() topic.Topic { return KindTrace }

// TraceHistory is one responder's answer to TraceHistoryRequest.
type TraceHistory struct {
	Lines []string
	// LastSeq is the Seq of the newest line. Traces at or below it are
	// already in Lines.
	LastSeq uint64
}

// TraceHistoryRequest asks for the trace lines recorded so far. Each
// responder contributes one TraceHistory.
type TraceHistoryRequest struct {
	replies *event.Replies[TraceHistory]
}

// NewTraceHistoryRequest creates a request with an empty collector.
func NewTraceHistoryRequest() TraceHistoryRequest {
	return TraceHistoryRequest{replies: event.NewReplies[TraceHistory]()}
}

// Kind implements event.Message.
func (TraceHistoryRequest) Kind() topic.Topic { return KindTraceHistoryRequest }

// Replies implements event.RequestMessage.
func (r TraceHistoryRequest) Replies() *event.Replies[TraceHistory] { return r.replies }

// All lists every message kind.
func All() []topic.Topic {
	return []topic.Topic{
		KindCloseWindow,
		KindWindowClosed,
		KindShutdown,
		KindTrace,
		KindTraceHistoryRequest,
	}
}
