package websockets

import "fmt"

// InvalidURIError is returned by Dial when the URI cannot be resolved into a
// WebSocket endpoint. It is always returned before any network activity.
type InvalidURIError struct {
	URI    string
	Reason string
	Cause  error
}

func (e *InvalidURIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid WebSocket URI %q: %v", e.URI, e.Cause)
	}
	return fmt.Sprintf("invalid WebSocket URI %q: %s", e.URI, e.Reason)
}

func (e *InvalidURIError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates caller misuse, e.g. a TLS config supplied for
// a ws:// endpoint or malformed extra headers. It is always returned before
// any network activity.
type ConfigurationError struct {
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// TransportError wraps a DNS, TCP or TLS failure. The underlying error is
// surfaced verbatim via Unwrap.
type TransportError struct {
	// Op is the transport operation that failed: "dial", "tls handshake",
	// "write" or "read".
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HandshakeError indicates the opening handshake failed: a malformed HTTP
// response, a non-101 status, an accept key mismatch or an unknown
// extension/subprotocol. Dial always tears the transport down before
// returning one.
type HandshakeError struct {
	Reason string
	Cause  error
}

func (e *HandshakeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *HandshakeError) Unwrap() error {
	return e.Cause
}
