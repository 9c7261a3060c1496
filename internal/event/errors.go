package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the message bus.
var (
	// ErrBusClosed is returned by operations on a closed bus.
	ErrBusClosed = errors.New("message bus is closed")

	// ErrNilOwner is returned when a subscription has no owner token.
	ErrNilOwner = errors.New("owner cannot be nil")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidTopic is returned when a subscription kind is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrInvalidMessage is returned when a published message is nil or has no valid kind.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNilContext is returned when Publish is called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrInvalidSubscription is returned when Unsubscribe gets a foreign or nil subscription.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrSubscriptionNotFound is returned when the subscription is no longer registered.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrScopeClosed is returned when subscribing through a closed Scope.
	ErrScopeClosed = errors.New("scope is closed")

	// ErrHandlerPanic matches every PanicError.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError wraps an error returned by a handler during fan-out.
type HandlerError struct {
	SubscriptionID string
	Owner          string
	Kind           string
	Err            error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s (owner %s) failed on %s: %v", e.SubscriptionID, e.Owner, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError describes a handler panic recovered during fan-out.
type PanicError struct {
	SubscriptionID string
	Owner          string
	Kind           string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s (owner %s) panicked on %s: %v", e.SubscriptionID, e.Owner, e.Kind, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
