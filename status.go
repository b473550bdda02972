package websockets

import "fmt"

// StatusCode represents a WebSocket close status code.
// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number
type StatusCode int

const (
	StatusNormalClosure StatusCode = 1000 + iota
	StatusGoingAway
	StatusProtocolError
	StatusUnsupportedData
	_ // 1004 is reserved.
	StatusNoStatusRcvd
	StatusAbnormalClosure
	StatusInvalidFramePayloadData
	StatusPolicyViolation
	StatusMessageTooBig
	StatusMandatoryExtension
	StatusInternalError
)

// CloseError is returned from read operations once the peer has sent a close
// frame, including a normal closure.
type CloseError struct {
	Code   StatusCode
	Reason string
}

func (ce CloseError) Error() string {
	return fmt.Sprintf("WebSocket closed with status = %v and reason = %q", ce.Code, ce.Reason)
}
