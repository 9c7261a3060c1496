// Package uithread provides the UI-affinity dispatcher.
//
// Window state is owned by one goroutine, the one running Loop.Run.
// Anything else, including bus handlers running on the trace producer's
// goroutine, must Post a callback instead of touching window state directly.
// Callbacks run one at a time in the order they were posted.
package uithread
