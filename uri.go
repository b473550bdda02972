package websockets

import (
	"net/url"
	"strconv"
)

// WSURI is a resolved WebSocket endpoint descriptor. It is produced once by
// ParseURI and never mutated.
type WSURI struct {
	Host         string
	Port         int
	Secure       bool
	ResourceName string
}

func (u *WSURI) defaultPort() int {
	if u.Secure {
		return 443
	}
	return 80
}

// hostHeader is the Host header value: the port is omitted when it equals
// the scheme's default.
func (u *WSURI) hostHeader() string {
	if u.Port == u.defaultPort() {
		return u.Host
	}
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// addr is the host:port pair the transport dials.
func (u *WSURI) addr() string {
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// ParseURI resolves rawURI into a WSURI. Only ws and wss schemes are
// accepted, fragments are rejected, the default port for the scheme is
// applied when none is given and an empty path resolves to "/".
func ParseURI(rawURI string) (*WSURI, error) {
	parsed, err := url.Parse(rawURI)
	if err != nil {
		return nil, &InvalidURIError{URI: rawURI, Cause: err}
	}

	var secure bool
	switch parsed.Scheme {
	case "ws":
	case "wss":
		secure = true
	default:
		return nil, &InvalidURIError{URI: rawURI, Reason: "scheme must be ws or wss"}
	}

	if parsed.Fragment != "" {
		return nil, &InvalidURIError{URI: rawURI, Reason: "fragments are not allowed"}
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, &InvalidURIError{URI: rawURI, Reason: "missing host"}
	}

	port := 80
	if secure {
		port = 443
	}
	if p := parsed.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, &InvalidURIError{URI: rawURI, Reason: "invalid port"}
		}
	}

	resource := parsed.Path
	if resource == "" {
		resource = "/"
	}
	if parsed.RawQuery != "" {
		resource += "?" + parsed.RawQuery
	}

	return &WSURI{
		Host:         host,
		Port:         port,
		Secure:       secure,
		ResourceName: resource,
	}, nil
}
