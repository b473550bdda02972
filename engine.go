package websockets

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/xerrors"
)

// FrameEngine manages the frame protocol of an already-open connection. The
// handshake layer is its only caller: Start receives the transport exactly
// once, after full validation, and nothing else reads or writes the
// transport from then on.
type FrameEngine interface {
	// Start takes ownership of the transport. buffered is the handshake's
	// read buffer; bytes the server sent after its response headers are
	// already sitting in it and must be consumed before the transport.
	Start(transport net.Conn, buffered *bufio.Reader, client bool) MessageConn

	// ForceClose aborts the transport without a closing handshake. Used for
	// teardown when no valid session exists.
	ForceClose(transport net.Conn) error
}

// MessageConn is a frame engine's view of an open connection: whole
// messages in, whole messages out.
type MessageConn interface {
	// ReadMessage blocks until the next data message. Control frames are
	// handled internally; a received close frame surfaces as CloseError.
	ReadMessage() (MessageType, []byte, error)

	WriteMessage(typ MessageType, p []byte) error

	// Ping writes a ping frame with the given payload.
	Ping(p []byte) error

	// Close performs the closing handshake at the frame level and then
	// closes the transport.
	Close(code StatusCode, reason string) error
}

// gobwasEngine is the default FrameEngine, backed by github.com/gobwas/ws.
type gobwasEngine struct{}

func (gobwasEngine) Start(transport net.Conn, buffered *bufio.Reader, client bool) MessageConn {
	state := ws.StateServerSide
	if client {
		state = ws.StateClientSide
	}
	c := &gobwasConn{
		transport: transport,
		state:     state,
	}
	// The read path writes too: wsutil replies to a server ping with a pong
	// from inside ReadData. Those replies go through the same write lock as
	// data frames so a pong can never interleave with one mid-frame.
	c.rw = struct {
		io.Reader
		io.Writer
	}{buffered, lockedWriter{mu: &c.writeMu, w: transport}}
	return c
}

func (gobwasEngine) ForceClose(transport net.Conn) error {
	// Abortive: no close frame, no draining. The peer sees the transport drop.
	return transport.Close()
}

type gobwasConn struct {
	transport net.Conn
	rw        io.ReadWriter
	state     ws.State

	// writeMu serializes every frame written to the transport: data frames,
	// pings, the close frame and the control replies issued by the read path.
	writeMu sync.Mutex
}

// lockedWriter guards w with mu. wsutil assembles each control reply into a
// single Write call, so holding the lock per call keeps whole frames atomic.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func (c *gobwasConn) ReadMessage() (MessageType, []byte, error) {
	p, op, err := wsutil.ReadData(c.rw, c.state)
	if err != nil {
		var ce wsutil.ClosedError
		if errors.As(err, &ce) {
			return 0, nil, CloseError{Code: StatusCode(ce.Code), Reason: ce.Reason}
		}
		return 0, nil, xerrors.Errorf("failed to read message: %w", err)
	}

	switch op {
	case ws.OpText:
		return MessageText, p, nil
	case ws.OpBinary:
		return MessageBinary, p, nil
	}
	return 0, nil, xerrors.Errorf("unexpected data opcode %v", op)
}

func (c *gobwasConn) WriteMessage(typ MessageType, p []byte) error {
	var op ws.OpCode
	switch typ {
	case MessageText:
		op = ws.OpText
	case MessageBinary:
		op = ws.OpBinary
	default:
		return xerrors.Errorf("unknown message type %v", typ)
	}

	c.writeMu.Lock()
	err := wsutil.WriteMessage(c.transport, c.state, op, p)
	c.writeMu.Unlock()
	if err != nil {
		return xerrors.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *gobwasConn) Ping(p []byte) error {
	c.writeMu.Lock()
	err := wsutil.WriteMessage(c.transport, c.state, ws.OpPing, p)
	c.writeMu.Unlock()
	if err != nil {
		return xerrors.Errorf("failed to write ping: %w", err)
	}
	return nil
}

func (c *gobwasConn) Close(code StatusCode, reason string) error {
	f := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusCode(code), reason))
	if c.state.ClientSide() {
		f = ws.MaskFrame(f)
	}

	c.writeMu.Lock()
	writeErr := ws.WriteFrame(c.transport, f)
	c.writeMu.Unlock()
	closeErr := c.transport.Close()
	if writeErr != nil {
		return xerrors.Errorf("failed to write close frame: %w", writeErr)
	}
	return closeErr
}
