package websockets

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/merrellb/websockets/internal/test/assert"
	"github.com/merrellb/websockets/internal/util"
)

func Test_secWebSocketAccept(t *testing.T) {
	t.Parallel()

	// The sample exchange of RFC 6455 section 1.3.
	assert.Equal(t, "accept", "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=",
		secWebSocketAccept("dGhlIHNhbXBsZSBub25jZQ=="))
}

func Test_buildRequest(t *testing.T) {
	t.Parallel()

	mustURI := func(s string) *WSURI {
		u, err := ParseURI(s)
		assert.Success(t, err)
		return u
	}

	t.Run("minimal", func(t *testing.T) {
		t.Parallel()

		hs, key, err := buildRequest(mustURI("ws://example.com/chat"), &DialOptions{}, rand.Reader)
		assert.Success(t, err)

		assert.Equal(t, "headers", HeaderSet{
			{Name: "Host", Value: "example.com"},
			{Name: "User-Agent", Value: userAgent},
			{Name: "Upgrade", Value: "websocket"},
			{Name: "Connection", Value: "Upgrade"},
			{Name: "Sec-WebSocket-Key", Value: key},
			{Name: "Sec-WebSocket-Version", Value: "13"},
		}, hs)

		rawKey, err := base64.StdEncoding.DecodeString(key)
		assert.Success(t, err)
		assert.Equal(t, "key length", 16, len(rawKey))
	})

	t.Run("fullOptions", func(t *testing.T) {
		t.Parallel()

		opts := &DialOptions{
			Origin:       "https://example.com",
			Extensions:   []string{"permessage-deflate", "x-custom"},
			Subprotocols: []string{"chat", "superchat"},
			ExtraHeaders: HeaderSet{
				{Name: "Cookie", Value: "a=1"},
				{Name: "Cookie", Value: "b=2"},
			},
		}
		hs, key, err := buildRequest(mustURI("ws://example.com:8080/chat"), opts, rand.Reader)
		assert.Success(t, err)

		assert.Equal(t, "headers", HeaderSet{
			{Name: "Host", Value: "example.com:8080"},
			{Name: "Origin", Value: "https://example.com"},
			{Name: "Sec-WebSocket-Extensions", Value: "permessage-deflate, x-custom"},
			{Name: "Sec-WebSocket-Protocol", Value: "chat, superchat"},
			{Name: "Cookie", Value: "a=1"},
			{Name: "Cookie", Value: "b=2"},
			{Name: "User-Agent", Value: userAgent},
			{Name: "Upgrade", Value: "websocket"},
			{Name: "Connection", Value: "Upgrade"},
			{Name: "Sec-WebSocket-Key", Value: key},
			{Name: "Sec-WebSocket-Version", Value: "13"},
		}, hs)
	})

	t.Run("freshKeyPerAttempt", func(t *testing.T) {
		t.Parallel()

		u := mustURI("ws://example.com/")
		_, key1, err := buildRequest(u, &DialOptions{}, rand.Reader)
		assert.Success(t, err)
		_, key2, err := buildRequest(u, &DialOptions{}, rand.Reader)
		assert.Success(t, err)

		if key1 == key2 {
			t.Fatalf("two attempts produced the same key %q", key1)
		}
	})

	t.Run("badRandSource", func(t *testing.T) {
		t.Parallel()

		_, _, err := buildRequest(mustURI("ws://example.com/"), &DialOptions{}, util.ReaderFunc(func(p []byte) (int, error) {
			return 0, io.EOF
		}))
		assert.Error(t, err)

		// The key is generated before any network activity, so a failing
		// randomness source must not surface as a handshake failure.
		var hsErr *HandshakeError
		if errors.As(err, &hsErr) {
			t.Fatalf("expected a plain error but got %T: %v", hsErr, err)
		}
	})

	t.Run("badExtraHeaders", func(t *testing.T) {
		t.Parallel()

		_, _, err := buildRequest(mustURI("ws://example.com/"), &DialOptions{
			ExtraHeaders: 42,
		}, rand.Reader)
		assert.Error(t, err)

		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalidExtraHeaderValue", func(t *testing.T) {
		t.Parallel()

		_, _, err := buildRequest(mustURI("ws://example.com/"), &DialOptions{
			ExtraHeaders: HeaderSet{{Name: "X-Bad", Value: "a\r\nevil: injected"}},
		}, rand.Reader)
		assert.Error(t, err)

		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalidOfferToken", func(t *testing.T) {
		t.Parallel()

		_, _, err := buildRequest(mustURI("ws://example.com/"), &DialOptions{
			Subprotocols: []string{"chat, sneaky"},
		}, rand.Reader)
		assert.Error(t, err)

		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("callerOffersNotAliased", func(t *testing.T) {
		t.Parallel()

		offers := []string{"chat"}
		_, _, err := buildRequest(mustURI("ws://example.com/"), &DialOptions{Subprotocols: offers}, rand.Reader)
		assert.Success(t, err)
		assert.Equal(t, "offers", []string{"chat"}, offers)
	})
}

func Test_verifyServerResponse(t *testing.T) {
	t.Parallel()

	key, err := makeSecWebSocketKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	accept := secWebSocketAccept(key)

	respHeader := func(kv ...string) http.Header {
		h := http.Header{}
		for i := 0; i < len(kv); i += 2 {
			h.Add(kv[i], kv[i+1])
		}
		return h
	}

	// sha1 of the bare key, without the GUID: a classic wrong implementation
	// the validator must reject.
	sum := sha1.Sum([]byte(key))
	acceptWithoutGUID := base64.StdEncoding.EncodeToString(sum[:])

	testCases := []struct {
		name                string
		statusCode          int
		header              http.Header
		offeredExtensions   []string
		offeredSubprotocols []string
		exp                 *HandshakeResult
		errContains         string
	}{
		{
			name:        "badStatusCode",
			statusCode:  200,
			header:      respHeader("Sec-WebSocket-Accept", accept),
			errContains: "Bad status code: 200",
		},
		{
			name:        "missingAccept",
			statusCode:  101,
			header:      respHeader(),
			errContains: "invalid Sec-WebSocket-Accept",
		},
		{
			name:        "wrongAccept",
			statusCode:  101,
			header:      respHeader("Sec-WebSocket-Accept", secWebSocketAccept("AAAAAAAAAAAAAAAAAAAAAA==")),
			errContains: "invalid Sec-WebSocket-Accept",
		},
		{
			name:        "acceptWithoutGUID",
			statusCode:  101,
			header:      respHeader("Sec-WebSocket-Accept", acceptWithoutGUID),
			errContains: "invalid Sec-WebSocket-Accept",
		},
		{
			name:              "unknownExtension",
			statusCode:        101,
			header:            respHeader("Sec-WebSocket-Accept", accept, "Sec-WebSocket-Extensions", "foo"),
			offeredExtensions: []string{"permessage-deflate"},
			errContains:       "Unknown extension: foo",
		},
		{
			name:       "mixedExtensionsRejectedWhole",
			statusCode: 101,
			header: respHeader("Sec-WebSocket-Accept", accept,
				"Sec-WebSocket-Extensions", "permessage-deflate, foo"),
			offeredExtensions: []string{"permessage-deflate"},
			errContains:       "Unknown extension: foo",
		},
		{
			name:                "unknownSubprotocol",
			statusCode:          101,
			header:              respHeader("Sec-WebSocket-Accept", accept, "Sec-WebSocket-Protocol", "superchat"),
			offeredSubprotocols: []string{"chat"},
			errContains:         "Unknown subprotocol: superchat",
		},
		{
			name:       "bare",
			statusCode: 101,
			header:     respHeader("Sec-WebSocket-Accept", accept),
			exp: &HandshakeResult{
				Header: respHeader("Sec-WebSocket-Accept", accept),
			},
		},
		{
			name:       "negotiated",
			statusCode: 101,
			header: respHeader("Sec-WebSocket-Accept", accept,
				"Sec-WebSocket-Extensions", "x-custom, permessage-deflate",
				"Sec-WebSocket-Protocol", "chat"),
			offeredExtensions:   []string{"permessage-deflate", "x-custom"},
			offeredSubprotocols: []string{"chat", "superchat"},
			exp: &HandshakeResult{
				Extensions:  []string{"x-custom", "permessage-deflate"},
				Subprotocol: "chat",
				Header: respHeader("Sec-WebSocket-Accept", accept,
					"Sec-WebSocket-Extensions", "x-custom, permessage-deflate",
					"Sec-WebSocket-Protocol", "chat"),
			},
		},
		{
			name:       "repeatedExtensionHeaders",
			statusCode: 101,
			header: respHeader("Sec-WebSocket-Accept", accept,
				"Sec-WebSocket-Extensions", "permessage-deflate",
				"Sec-WebSocket-Extensions", "x-custom"),
			offeredExtensions: []string{"permessage-deflate", "x-custom"},
			exp: &HandshakeResult{
				Extensions: []string{"permessage-deflate", "x-custom"},
				Header: respHeader("Sec-WebSocket-Accept", accept,
					"Sec-WebSocket-Extensions", "permessage-deflate",
					"Sec-WebSocket-Extensions", "x-custom"),
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := verifyServerResponse(tc.statusCode, tc.header, key,
				tc.offeredExtensions, tc.offeredSubprotocols)
			if tc.errContains != "" {
				assert.Error(t, err)
				assert.Contains(t, err, tc.errContains)

				var hsErr *HandshakeError
				assert.ErrorAs(t, err, &hsErr)
				return
			}
			assert.Success(t, err)
			assert.Equal(t, "result", tc.exp, res)
		})
	}
}
