package websockets

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is a single (name, value) pair of the handshake request.
type Header struct {
	Name  string
	Value string
}

// HeaderSet is an ordered sequence of headers. Order is significant: the
// wire exchange serializes it verbatim. Duplicate names are permitted, as
// HTTP allows repeated header fields.
type HeaderSet []Header

func (hs *HeaderSet) add(name, value string) {
	*hs = append(*hs, Header{Name: name, Value: value})
}

// Get returns the value of the first header matching name, case
// insensitively, or "" if absent.
func (hs HeaderSet) Get(name string) string {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// normalizeExtraHeaders turns the caller-supplied extra headers into an
// ordered HeaderSet. Accepted forms:
//
//   - HeaderSet or []Header: an explicit ordered sequence, duplicates
//     preserved verbatim.
//   - map[string]string: a unique-key mapping, serialized with sorted keys
//     so each key appears exactly once, deterministically.
//   - http.Header: a unique-key mapping with multiple values per key; keys
//     are sorted, values keep their order within a key.
//
// Anything else is a *ConfigurationError.
func normalizeExtraHeaders(extra interface{}) (HeaderSet, error) {
	switch v := extra.(type) {
	case nil:
		return nil, nil
	case HeaderSet:
		return append(HeaderSet(nil), v...), nil
	case []Header:
		return append(HeaderSet(nil), v...), nil
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		hs := make(HeaderSet, 0, len(keys))
		for _, k := range keys {
			hs.add(k, v[k])
		}
		return hs, nil
	case http.Header:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var hs HeaderSet
		for _, k := range keys {
			for _, val := range v[k] {
				hs.add(k, val)
			}
		}
		return hs, nil
	}
	return nil, &ConfigurationError{
		Reason: "extra headers must be a mapping or an ordered sequence of pairs",
	}
}

// validHeader reports whether the pair may appear in an HTTP/1.1 request.
func validHeader(h Header) bool {
	return httpguts.ValidHeaderFieldName(h.Name) && httpguts.ValidHeaderFieldValue(h.Value)
}

// headerValues collects all values of a possibly repeated response header.
func headerValues(h http.Header, name string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// splitHeaderTokens splits comma separated header values into whitespace
// trimmed tokens, dropping empty entries.
func splitHeaderTokens(values []string) []string {
	var tokens []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	return tokens
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
