// Package voiceerr defines the error kinds shared by providers, the action
// executor and the conversation engine.
package voiceerr

import (
	"errors"
	"fmt"
)

// Kind categorizes errors.
type Kind string

const (
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderTimeout     Kind = "provider_timeout"
	KindProviderError       Kind = "provider_error"
	KindActionFailed        Kind = "action_failed"
	KindSessionNotFound     Kind = "session_not_found"
)

// Error carries a Kind plus the provider or action it came from.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable reports a provider that has no credentials or was disabled.
func Unavailable(provider, message string) *Error {
	return &Error{Kind: KindProviderUnavailable, Provider: provider, Message: message}
}

// Timeout reports a provider call that exceeded its budget.
func Timeout(provider string, err error) *Error {
	return &Error{Kind: KindProviderTimeout, Provider: provider, Message: "call timed out", Err: err}
}

// ProviderFailure reports a provider that returned an error or unusable output.
func ProviderFailure(provider string, err error) *Error {
	return &Error{Kind: KindProviderError, Provider: provider, Err: err}
}

// ActionFailed reports a failed call to the order backend.
func ActionFailed(action string, err error) *Error {
	return &Error{Kind: KindActionFailed, Provider: action, Err: err}
}

// SessionNotFound reports an operation on an unknown session id.
func SessionNotFound(sessionID string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: "no session " + sessionID}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
