package websockets

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/tls"
	"io"
	"net"

	"golang.org/x/time/rate"
	"golang.org/x/xerrors"
)

// DialOptions represents the options available to pass to Dial.
type DialOptions struct {
	// Origin sets the Origin header. Omitted when empty.
	Origin string

	// Extensions lists the extensions to offer, in order of decreasing
	// preference. Dial never mutates the slice.
	Extensions []string

	// Subprotocols lists the subprotocols to offer, in order of decreasing
	// preference. Dial never mutates the slice.
	Subprotocols []string

	// ExtraHeaders sets additional handshake request headers. It must be a
	// unique-key mapping (map[string]string or http.Header) or an ordered
	// sequence of pairs (HeaderSet or []Header, duplicates preserved).
	ExtraHeaders interface{}

	// TLSConfig configures TLS for wss:// endpoints. When nil, a wss://
	// dial uses full certificate verification against the system trust
	// store. Supplying a TLSConfig for a ws:// endpoint is a
	// configuration error.
	TLSConfig *tls.Config

	// NetDialer opens the TCP transport. Defaults to a zero net.Dialer.
	NetDialer *net.Dialer

	// FrameEngine takes over the transport once the handshake succeeds.
	// Defaults to the gobwas/ws backed engine.
	FrameEngine FrameEngine

	// ReadRateLimit throttles Read calls on the resulting connection.
	// Zero means no limit.
	ReadRateLimit rate.Limit
}

func (opts *DialOptions) ensure() *DialOptions {
	if opts == nil {
		opts = &DialOptions{}
	} else {
		o := *opts
		opts = &o
	}
	if opts.NetDialer == nil {
		opts.NetDialer = &net.Dialer{}
	}
	if opts.FrameEngine == nil {
		opts.FrameEngine = gobwasEngine{}
	}
	return opts
}

// Dial performs the WebSocket opening handshake on the given URI and
// returns the connection in the OPEN state.
//
// Dial is atomic from the caller's point of view: it either returns an open,
// fully verified connection, or an error with the transport torn down. The
// error is one of *InvalidURIError, *ConfigurationError, *TransportError or
// *HandshakeError; use errors.As to branch on it. There are no retries at
// this layer.
//
// Cancelling ctx at any point interrupts in-flight I/O and force-closes the
// transport; a half-open socket is never left behind.
func Dial(ctx context.Context, u string, opts *DialOptions) (*Conn, error) {
	c, err := dial(ctx, u, opts, rand.Reader)
	if err != nil {
		return nil, xerrors.Errorf("failed to WebSocket dial: %w", err)
	}
	return c, nil
}

func dial(ctx context.Context, u string, opts *DialOptions, rng io.Reader) (_ *Conn, err error) {
	opts = opts.ensure()

	wsuri, err := ParseURI(u)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := resolveTLS(wsuri, opts.TLSConfig)
	if err != nil {
		return nil, err
	}

	// Built before the transport opens so configuration errors never cost a
	// connection.
	hs, key, err := buildRequest(wsuri, opts, rng)
	if err != nil {
		return nil, err
	}

	transport, err := openTransport(ctx, wsuri, tlsConfig, opts.NetDialer)
	if err != nil {
		return nil, err
	}

	readLimiter := rate.NewLimiter(rate.Inf, 1)
	if opts.ReadRateLimit > 0 {
		readLimiter = rate.NewLimiter(opts.ReadRateLimit, 1)
	}

	c := &Conn{
		transport:      transport,
		engine:         opts.FrameEngine,
		requestHeaders: hs,
		readLimiter:    readLimiter,
	}

	// All-or-nothing: any failure below leaves the state CLOSED and the
	// transport force-closed before the error propagates.
	defer func() {
		if err != nil {
			c.state.transition(StateConnecting, StateClosed)
			opts.FrameEngine.ForceClose(transport)
			if ctx.Err() != nil {
				err = &TransportError{Op: "handshake", Cause: ctx.Err()}
			}
		}
	}()

	stop := c.interruptOnDone(ctx)
	defer stop()

	br := bufio.NewReader(transport)

	err = writeRequest(transport, wsuri.ResourceName, hs)
	if err != nil {
		return nil, err
	}

	statusCode, header, err := readResponse(br)
	if err != nil {
		return nil, err
	}

	result, err := verifyServerResponse(statusCode, header, key, opts.Extensions, opts.Subprotocols)
	if err != nil {
		return nil, err
	}

	if !c.state.transition(StateConnecting, StateOpen) {
		return nil, xerrors.New("connection closed during handshake")
	}
	c.result = result
	c.mc = opts.FrameEngine.Start(transport, br, true)

	return c, nil
}

// resolveTLS decides the TLS policy for the endpoint. A secure endpoint
// with no explicit configuration gets full certificate verification; an
// explicit configuration for an insecure endpoint is caller misuse.
func resolveTLS(u *WSURI, cfg *tls.Config) (*tls.Config, error) {
	if !u.Secure {
		if cfg != nil {
			return nil, &ConfigurationError{
				Reason: "TLS configuration supplied for a ws:// URI; use wss:// to enable TLS",
			}
		}
		return nil, nil
	}

	if cfg == nil {
		return &tls.Config{ServerName: u.Host}, nil
	}
	cfg = cfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = u.Host
	}
	return cfg, nil
}

func openTransport(ctx context.Context, u *WSURI, tlsConfig *tls.Config, dialer *net.Dialer) (net.Conn, error) {
	netConn, err := dialer.DialContext(ctx, "tcp", u.addr())
	if err != nil {
		return nil, &TransportError{Op: "dial", Cause: err}
	}

	if tlsConfig == nil {
		return netConn, nil
	}

	tlsConn := tls.Client(netConn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		netConn.Close()
		return nil, &TransportError{Op: "tls handshake", Cause: err}
	}
	return tlsConn, nil
}
