// Package topic defines message kinds for the bus.
//
// A kind is a dot-separated name such as "window.closed" or "trace.event".
// Subscriptions usually name an exact kind. Two wildcards are accepted in a
// subscription kind so that taps can observe families of messages:
//
//	window.*     matches window.close and window.closed
//	trace.**     matches trace.event and trace.history.request
//	**           matches every kind
//
// Matcher indexes subscription kinds in a trie so a concrete kind can be
// resolved to every pattern that accepts it.
package topic
