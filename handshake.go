package websockets

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gobwas/httphead"
	"golang.org/x/xerrors"
)

// keyGUID is the fixed GUID every server appends to the client key before
// hashing, per RFC 6455 section 4.2.2.
var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// userAgent identifies this client on every handshake request.
const userAgent = "Go-websockets/1.0"

// HandshakeResult is the write-once outcome of a verified handshake.
type HandshakeResult struct {
	// Extensions are the extensions selected by the server, in the order the
	// server returned them. Always a subset of the offered extensions.
	Extensions []string

	// Subprotocol is the subprotocol selected by the server, or "" when the
	// server selected none.
	Subprotocol string

	// Header is the full response header set as parsed by the HTTP reader.
	Header http.Header
}

// makeSecWebSocketKey returns 16 random bytes base64 encoded, read from rng
// so tests can substitute a failing or deterministic source. A fresh key is
// generated per handshake attempt and never reused.
func makeSecWebSocketKey(rng io.Reader) (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rng, b); err != nil {
		return "", xerrors.Errorf("failed to read random data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// secWebSocketAccept computes the expected Sec-WebSocket-Accept value for a
// key as transmitted (base64 text), per RFC 6455.
func secWebSocketAccept(secWebSocketKey string) string {
	h := sha1.New()
	h.Write([]byte(secWebSocketKey))
	h.Write(keyGUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// buildRequest produces the ordered handshake header set and a fresh key.
// It performs no I/O. The order is fixed: Host, Origin (if any), extension
// and subprotocol offers (if any), caller extras, User-Agent, then the
// upgrade block ending with the key and version headers.
func buildRequest(u *WSURI, opts *DialOptions, rng io.Reader) (HeaderSet, string, error) {
	var hs HeaderSet
	hs.add("Host", u.hostHeader())
	if opts.Origin != "" {
		hs.add("Origin", opts.Origin)
	}
	if len(opts.Extensions) > 0 {
		if err := validateOffers("extension", opts.Extensions); err != nil {
			return nil, "", err
		}
		hs.add("Sec-WebSocket-Extensions", strings.Join(opts.Extensions, ", "))
	}
	if len(opts.Subprotocols) > 0 {
		if err := validateOffers("subprotocol", opts.Subprotocols); err != nil {
			return nil, "", err
		}
		hs.add("Sec-WebSocket-Protocol", strings.Join(opts.Subprotocols, ", "))
	}

	extra, err := normalizeExtraHeaders(opts.ExtraHeaders)
	if err != nil {
		return nil, "", err
	}
	for _, h := range extra {
		if !validHeader(h) {
			return nil, "", &ConfigurationError{
				Reason: fmt.Sprintf("invalid extra header %q: %q", h.Name, h.Value),
			}
		}
		hs.add(h.Name, h.Value)
	}

	hs.add("User-Agent", userAgent)
	hs.add("Upgrade", "websocket")
	hs.add("Connection", "Upgrade")

	// No network activity has happened yet, so a failing randomness source
	// is not a handshake failure; it surfaces as a plain wrapped error.
	key, err := makeSecWebSocketKey(rng)
	if err != nil {
		return nil, "", xerrors.Errorf("failed to generate Sec-WebSocket-Key: %w", err)
	}
	hs.add("Sec-WebSocket-Key", key)
	hs.add("Sec-WebSocket-Version", "13")

	return hs, key, nil
}

// validateOffers rejects offer lists whose entries are not single HTTP
// tokens, before they can corrupt the header line.
func validateOffers(kind string, offers []string) error {
	for _, offer := range offers {
		n := 0
		ok := httphead.ScanTokens([]byte(offer), func([]byte) bool {
			n++
			return true
		})
		if !ok || n != 1 {
			return &ConfigurationError{
				Reason: fmt.Sprintf("offered %s is not a valid token: %q", kind, offer),
			}
		}
	}
	return nil
}

// verifyServerResponse applies the ordered validation rules of the opening
// handshake and produces the HandshakeResult. The offered lists are caller
// input and are never mutated; negotiated values exist only in the result.
func verifyServerResponse(statusCode int, header http.Header, key string, offeredExtensions, offeredSubprotocols []string) (*HandshakeResult, error) {
	if statusCode != http.StatusSwitchingProtocols {
		return nil, &HandshakeError{Reason: fmt.Sprintf("Bad status code: %d", statusCode)}
	}

	if accept := header.Get("Sec-WebSocket-Accept"); accept != secWebSocketAccept(key) {
		return nil, &HandshakeError{
			Reason: fmt.Sprintf("invalid Sec-WebSocket-Accept %q for key %q", accept, key),
		}
	}

	res := &HandshakeResult{Header: header}

	// An extension or subprotocol the server selected but we never offered
	// fails the whole handshake; there is no partial activation.
	if tokens := splitHeaderTokens(headerValues(header, "Sec-WebSocket-Extensions")); len(tokens) > 0 {
		for _, token := range tokens {
			if !containsToken(offeredExtensions, token) {
				return nil, &HandshakeError{Reason: fmt.Sprintf("Unknown extension: %s", token)}
			}
		}
		res.Extensions = tokens
	}

	if subprotocol := strings.TrimSpace(header.Get("Sec-WebSocket-Protocol")); subprotocol != "" {
		if !containsToken(offeredSubprotocols, subprotocol) {
			return nil, &HandshakeError{Reason: fmt.Sprintf("Unknown subprotocol: %s", subprotocol)}
		}
		res.Subprotocol = subprotocol
	}

	return res, nil
}
