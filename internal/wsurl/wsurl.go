// Package wsurl builds and normalizes websocket upstream URLs. Hosted
// vendors get wss; loopback hosts (local inference servers, test doubles)
// get plain ws so development setups work without certificates.
package wsurl

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Param is one ordered query parameter. Order is preserved so repeated keys
// (languages, keywords) arrive the way the vendor documents them.
type Param struct {
	Key   string
	Value string
}

// IsLoopback reports whether the host resolves to the local machine by
// name. Only literal loopback spellings count; we never do DNS here.
func IsLoopback(host string) bool {
	h := strings.ToLower(host)
	if stripped, _, err := net.SplitHostPort(h); err == nil {
		h = stripped
	}
	h = strings.Trim(h, "[]")
	switch h {
	case "127.0.0.1", "localhost", "0.0.0.0", "::1":
		return true
	}
	return false
}

// SchemeFor picks ws for loopback hosts and wss for everything else.
func SchemeFor(host string) string {
	if IsLoopback(host) {
		return "ws"
	}
	return "wss"
}

// Build assembles a websocket URL from host, path, and ordered params.
func Build(host, path string, params []Param) (*url.URL, error) {
	if host == "" {
		return nil, fmt.Errorf("ws host is empty")
	}
	u := &url.URL{
		Scheme: SchemeFor(host),
		Host:   host,
		Path:   path,
	}
	u.RawQuery = Encode(params)
	return u, nil
}

// Encode renders ordered params as a query string, keeping duplicates.
func Encode(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Merge overlays client params onto defaults. A client value for a key
// replaces every default occurrence of that key; keys the client does not
// touch keep their default values and order.
func Merge(defaults, client []Param) []Param {
	overridden := make(map[string]bool, len(client))
	for _, p := range client {
		overridden[p.Key] = true
	}
	out := make([]Param, 0, len(defaults)+len(client))
	for _, p := range defaults {
		if !overridden[p.Key] {
			out = append(out, p)
		}
	}
	return append(out, client...)
}

// Normalize rewrites an operator-supplied override URL for websocket use:
// http(s) schemes flip to ws(s), and a missing scheme is inferred from the
// host.
func Normalize(raw string) (*url.URL, error) {
	// "localhost:9090" would parse with "localhost" as the scheme, so
	// schemeless input is handled before url.Parse sees it.
	if !strings.Contains(raw, "://") {
		raw = SchemeFor(raw) + "://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported upstream scheme %q", u.Scheme)
	}
	return u, nil
}
