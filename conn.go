package websockets

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"golang.org/x/xerrors"
)

// aLongTimeAgo is a non-zero time far in the past, used to interrupt
// blocked transport reads and writes when a context is cancelled.
var aLongTimeAgo = time.Unix(233431200, 0)

// Conn is an established WebSocket connection. It is returned by Dial only
// in the OPEN state, carrying the negotiated capabilities of the handshake.
//
// All methods may be called concurrently except for Read: the connection
// supports one reader at a time.
type Conn struct {
	state     connState
	transport net.Conn
	engine    FrameEngine
	mc        MessageConn

	result         *HandshakeResult
	requestHeaders HeaderSet

	readLimiter *rate.Limiter

	writeMu sync.Mutex

	closeMu  sync.Mutex
	closeErr error
}

// State reports the connection lifecycle state.
func (c *Conn) State() ConnectionState {
	return c.state.load()
}

// Subprotocol returns the subprotocol selected by the server, or "" when
// none was negotiated.
func (c *Conn) Subprotocol() string {
	return c.result.Subprotocol
}

// Extensions returns the extensions selected by the server, in server
// order. The slice is a copy; the negotiated set is immutable.
func (c *Conn) Extensions() []string {
	return append([]string(nil), c.result.Extensions...)
}

// ResponseHeader returns the handshake response headers.
func (c *Conn) ResponseHeader() http.Header {
	return c.result.Header
}

// RequestHeaders returns a copy of the header set that was written during
// the handshake, in wire order.
func (c *Conn) RequestHeaders() HeaderSet {
	return append(HeaderSet(nil), c.requestHeaders...)
}

// Read blocks until the next data message from the server. Control frames
// are handled by the frame engine. Once the server closes the connection,
// Read returns a CloseError, including for a normal closure.
func (c *Conn) Read(ctx context.Context) (MessageType, []byte, error) {
	if s := c.state.load(); s != StateOpen {
		return 0, nil, xerrors.Errorf("cannot read: connection is %v", s)
	}

	if err := c.readLimiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	stop := c.interruptOnDone(ctx)
	defer stop()

	typ, p, err := c.mc.ReadMessage()
	if err != nil {
		var ce CloseError
		if errors.As(err, &ce) {
			c.close(ce)
			return 0, nil, ce
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.close(err)
		return 0, nil, err
	}
	return typ, p, nil
}

// Write writes a single data message.
func (c *Conn) Write(ctx context.Context, typ MessageType, p []byte) error {
	if s := c.state.load(); s != StateOpen {
		return xerrors.Errorf("cannot write: connection is %v", s)
	}

	stop := c.interruptOnDone(ctx)
	defer stop()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.mc.WriteMessage(typ, p)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.close(err)
		return err
	}
	return nil
}

// Ping writes a ping frame. The engine replies to the server's pong
// transparently during reads; Ping does not wait for it.
func (c *Conn) Ping(ctx context.Context) error {
	if s := c.state.load(); s != StateOpen {
		return xerrors.Errorf("cannot ping: connection is %v", s)
	}

	stop := c.interruptOnDone(ctx)
	defer stop()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.mc.Ping(nil)
}

// Close performs the closing handshake with the given status code and
// reason and releases the transport. Closing an already closed connection
// is a no-op.
func (c *Conn) Close(code StatusCode, reason string) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if !c.state.transition(StateOpen, StateClosed) {
		return nil
	}
	c.closeErr = CloseError{Code: code, Reason: reason}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.mc.Close(code, reason)
}

// close force-closes the transport after a fatal error. No close frame is
// written; there is no session left to close gracefully.
func (c *Conn) close(err error) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if !c.state.transition(StateOpen, StateClosed) {
		return
	}
	c.closeErr = err
	c.engine.ForceClose(c.transport)
}

// interruptOnDone forces pending transport I/O to fail promptly once ctx is
// cancelled. The returned stop function must be called when the operation
// completes; it clears the interruption deadline.
func (c *Conn) interruptOnDone(ctx context.Context) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}

	done := make(chan struct{})
	interrupted := make(chan struct{})
	go func() {
		defer close(interrupted)
		select {
		case <-ctx.Done():
			c.transport.SetDeadline(aLongTimeAgo)
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-interrupted
		if ctx.Err() == nil {
			c.transport.SetDeadline(time.Time{})
		}
	}
}
