// Package websockets implements the client side of the WebSocket opening
// handshake.
//
// See https://tools.ietf.org/html/rfc6455#section-4
//
// Dial resolves a ws:// or wss:// URI, opens the transport under the right
// TLS policy, performs the upgrade request/response exchange and returns a
// *Conn only once the handshake has been fully verified. A connection is
// never observable in a partially established state: every failure tears the
// transport down before the error propagates.
//
// Framing on the established connection is delegated to a FrameEngine; the
// default engine is backed by github.com/gobwas/ws.
package websockets // import "github.com/merrellb/websockets"
