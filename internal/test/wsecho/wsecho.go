// Package wsecho provides a gorilla/websocket backed echo server for tests.
package wsecho

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// Server starts an httptest server that upgrades every request with
// gorilla/websocket and echoes data messages back until the client closes.
// The returned URL uses the ws scheme.
func Server(tb testing.TB, subprotocols ...string) string {
	tb.Helper()

	up := &websocket.Upgrader{
		Subprotocols: subprotocols,
		CheckOrigin:  func(*http.Request) bool { return true },
	}

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		echo(c)
	}))
	tb.Cleanup(s.Close)

	return URL(s.URL)
}

// URL rewrites an http(s) URL into its ws(s) equivalent.
func URL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func echo(c *websocket.Conn) {
	for {
		typ, p, err := c.ReadMessage()
		if err != nil {
			return
		}
		if err := c.WriteMessage(typ, p); err != nil {
			return
		}
	}
}
