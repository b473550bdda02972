package websockets

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
)

// writeRequest serializes the handshake as an HTTP/1.1 GET request: request
// line, header lines in HeaderSet order, blank line terminator, CRLF
// throughout. The URI and headers are plain ASCII so the serialization is
// byte-for-byte what was built.
func writeRequest(w io.Writer, resourceName string, hs HeaderSet) error {
	var buf bytes.Buffer
	buf.WriteString("GET ")
	buf.WriteString(resourceName)
	buf.WriteString(" HTTP/1.1\r\n")
	for _, h := range hs {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return &TransportError{Op: "write", Cause: err}
	}
	return nil
}

// readResponse reads the response status line and headers, delegating the
// parsing to net/http. A transport that closes before the headers are
// complete surfaces as a TransportError; any other parse failure is a
// malformed handshake. A 101 response has no body, so nothing beyond the
// header block is consumed from br.
func readResponse(br *bufio.Reader) (int, http.Header, error) {
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		if prematureClose(err) {
			return 0, nil, &TransportError{Op: "read", Cause: err}
		}
		return 0, nil, &HandshakeError{Reason: "Malformed HTTP message", Cause: err}
	}
	resp.Body.Close()
	return resp.StatusCode, resp.Header, nil
}

func prematureClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
