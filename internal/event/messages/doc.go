// Package messages defines the closed set of messages exchanged on the bus
// between windows, the trace producer and the lifecycle coordinator.
//
// Directives (CloseWindow, Shutdown) ask receivers to act; acknowledgements
// (WindowClosed) report that an action finished.
package messages
