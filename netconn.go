package websockets

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"sync"
	"time"
)

// NetConn converts a *Conn into a net.Conn for tunneling arbitrary
// protocols over a WebSocket.
//
// Every Write corresponds to one binary message; Read consumes messages
// byte by byte, so message boundaries are not visible through this view.
// Close closes the connection with StatusNormalClosure and a received
// normal close frame translates to io.EOF.
//
// When a deadline is hit the connection is closed, unlike most net.Conn
// implementations where only the blocked call is interrupted.
//
// The Addr methods return a mock net.Addr that returns "websocket" for
// Network and "websocket/unknown-addr" for String.
func NetConn(c *Conn) net.Conn {
	nc := &netConn{c: c}

	var cancel context.CancelFunc
	nc.writeContext, cancel = context.WithCancel(context.Background())
	nc.writeTimer = time.AfterFunc(math.MaxInt64, cancel)
	if !nc.writeTimer.Stop() {
		<-nc.writeTimer.C
	}

	nc.readContext, cancel = context.WithCancel(context.Background())
	nc.readTimer = time.AfterFunc(math.MaxInt64, cancel)
	if !nc.readTimer.Stop() {
		<-nc.readTimer.C
	}

	return nc
}

type netConn struct {
	c *Conn

	writeTimer   *time.Timer
	writeContext context.Context

	readTimer   *time.Timer
	readContext context.Context

	readMu sync.Mutex
	buf    []byte
	eofed  bool
}

var _ net.Conn = &netConn{}

func (nc *netConn) Close() error {
	return nc.c.Close(StatusNormalClosure, "")
}

func (nc *netConn) Write(p []byte) (int, error) {
	err := nc.c.Write(nc.writeContext, MessageBinary, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (nc *netConn) Read(p []byte) (int, error) {
	nc.readMu.Lock()
	defer nc.readMu.Unlock()

	if nc.eofed {
		return 0, io.EOF
	}

	for len(nc.buf) == 0 {
		_, msg, err := nc.c.Read(nc.readContext)
		if err != nil {
			var ce CloseError
			if errors.As(err, &ce) && ce.Code == StatusNormalClosure {
				nc.eofed = true
				return 0, io.EOF
			}
			return 0, err
		}
		nc.buf = msg
	}

	n := copy(p, nc.buf)
	nc.buf = nc.buf[n:]
	return n, nil
}

type websocketAddr struct{}

func (websocketAddr) Network() string {
	return "websocket"
}

func (websocketAddr) String() string {
	return "websocket/unknown-addr"
}

func (nc *netConn) RemoteAddr() net.Addr {
	return websocketAddr{}
}

func (nc *netConn) LocalAddr() net.Addr {
	return websocketAddr{}
}

func (nc *netConn) SetDeadline(t time.Time) error {
	nc.SetWriteDeadline(t)
	nc.SetReadDeadline(t)
	return nil
}

func (nc *netConn) SetWriteDeadline(t time.Time) error {
	if t.IsZero() {
		nc.writeTimer.Stop()
	} else {
		nc.writeTimer.Reset(time.Until(t))
	}
	return nil
}

func (nc *netConn) SetReadDeadline(t time.Time) error {
	if t.IsZero() {
		nc.readTimer.Stop()
	} else {
		nc.readTimer.Reset(time.Until(t))
	}
	return nil
}
