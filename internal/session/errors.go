package session

import (
	"fmt"
	"time"
)

// Error classes used for metrics attributes and message lookup.
const (
	ClassAuthentication = "authentication"
	ClassConnection     = "connection"
	ClassNotConnected   = "not_connected"
	ClassDevice         = "device"
	ClassProtocol       = "protocol"
	ClassTimeout        = "timeout"
	ClassTranscription  = "transcription"
)

// AuthenticationError reports a credential rejected before or by the
// backend. Raised locally for malformed credentials, without touching
// the network.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("session: authentication: %s", e.Reason)
}

// ConnectionError reports a failure to establish or keep the realtime
// channel.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("session: connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotConnectedError reports an operation that requires a live channel.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("session: %s: not connected", e.Op)
}

// DeviceError reports a failure to acquire or drive the capture device.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("session: capture device: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ProtocolError reports an error event from the backend or a malformed
// envelope. The channel stays open; the error is informational.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session: protocol: %s: %s", e.Code, e.Message)
}

// TimeoutError reports the response watchdog firing while a model
// response was outstanding.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session: no response within %s", e.After)
}

// TranscriptionError reports a failed fallback transcription.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("session: transcription: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
