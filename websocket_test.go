package websockets_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/merrellb/websockets"
	"github.com/merrellb/websockets/internal/test/assert"
	"github.com/merrellb/websockets/internal/test/wsecho"
)

func TestConn(t *testing.T) {
	t.Parallel()

	t.Run("echo", func(t *testing.T) {
		t.Parallel()

		url := wsecho.Server(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		c, err := websockets.Dial(ctx, url, nil)
		assert.Success(t, err)
		defer c.Close(websockets.StatusInternalError, "")

		assert.Equal(t, "state", websockets.StateOpen, c.State())

		err = c.Write(ctx, websockets.MessageText, []byte("hello"))
		assert.Success(t, err)

		typ, p, err := c.Read(ctx)
		assert.Success(t, err)
		assert.Equal(t, "message type", websockets.MessageText, typ)
		assert.Equal(t, "message", "hello", string(p))

		err = c.Write(ctx, websockets.MessageBinary, []byte{0x00, 0xff, 0x10})
		assert.Success(t, err)

		typ, p, err = c.Read(ctx)
		assert.Success(t, err)
		assert.Equal(t, "message type", websockets.MessageBinary, typ)
		assert.Equal(t, "message", []byte{0x00, 0xff, 0x10}, p)

		assert.Success(t, c.Close(websockets.StatusNormalClosure, ""))
		assert.Equal(t, "state", websockets.StateClosed, c.State())
	})

	t.Run("ping", func(t *testing.T) {
		t.Parallel()

		url := wsecho.Server(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		c, err := websockets.Dial(ctx, url, nil)
		assert.Success(t, err)
		defer c.Close(websockets.StatusInternalError, "")

		assert.Success(t, c.Ping(ctx))

		// The connection must remain healthy after the ping/pong exchange.
		assert.Success(t, c.Write(ctx, websockets.MessageText, []byte("after ping")))
		_, p, err := c.Read(ctx)
		assert.Success(t, err)
		assert.Equal(t, "message", "after ping", string(p))

		c.Close(websockets.StatusNormalClosure, "")
	})

	t.Run("subprotocolNegotiation", func(t *testing.T) {
		t.Parallel()

		url := wsecho.Server(t, "chat", "superchat")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		c, err := websockets.Dial(ctx, url, &websockets.DialOptions{
			Subprotocols: []string{"superchat"},
		})
		assert.Success(t, err)
		defer c.Close(websockets.StatusNormalClosure, "")

		assert.Equal(t, "subprotocol", "superchat", c.Subprotocol())
	})

	t.Run("readAfterClose", func(t *testing.T) {
		t.Parallel()

		url := wsecho.Server(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		c, err := websockets.Dial(ctx, url, nil)
		assert.Success(t, err)

		assert.Success(t, c.Close(websockets.StatusNormalClosure, ""))

		_, _, err = c.Read(ctx)
		assert.Error(t, err)
		assert.Contains(t, err, "CLOSED")
	})

	t.Run("readCancellation", func(t *testing.T) {
		t.Parallel()

		url := wsecho.Server(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		c, err := websockets.Dial(ctx, url, nil)
		assert.Success(t, err)

		readCtx, readCancel := context.WithTimeout(ctx, time.Millisecond*100)
		defer readCancel()

		// The server echoes and never speaks first, so this read can only
		// end via cancellation.
		_, _, err = c.Read(readCtx)
		assert.Error(t, err)
		assert.ErrorIs(t, context.DeadlineExceeded, err)
		assert.Equal(t, "state", websockets.StateClosed, c.State())
	})
}

func TestRequestHeadersRetained(t *testing.T) {
	t.Parallel()

	url := wsecho.Server(t)
	if !strings.HasPrefix(url, "ws://") {
		t.Fatalf("unexpected test url %q", url)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	c, err := websockets.Dial(ctx, url, &websockets.DialOptions{
		Origin: "http://example.com",
	})
	assert.Success(t, err)
	defer c.Close(websockets.StatusNormalClosure, "")

	hs := c.RequestHeaders()
	assert.Equal(t, "origin", "http://example.com", hs.Get("Origin"))
	assert.Equal(t, "version", "13", hs.Get("Sec-WebSocket-Version"))
	if hs.Get("Sec-WebSocket-Key") == "" {
		t.Fatal("request key header missing")
	}
}
