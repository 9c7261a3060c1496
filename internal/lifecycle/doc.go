// Package lifecycle coordinates process shutdown.
//
// The Coordinator owns the shutdown state machine:
//
//	Idle -> Requested -> AwaitingProducer -> AwaitingWindows -> Complete
//	                  \_____________________/
//
// The main window's closing hook calls OnClosing. The first call publishes
// messages.Shutdown, vetoes the close and waits, off the UI goroutine, for
// the trace producer to stop. It then waits for a messages.WindowClosed
// from every tracked window, bounded by a timeout, unregisters itself and
// closes the main window for real.
//
// Faults turns unrecovered panics into a logged, best-effort shutdown
// followed by exit code 2.
package lifecycle
