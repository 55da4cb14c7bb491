// Package relay pumps websocket traffic between a client and an upstream
// speech vendor. It owns credential injection, control-message filtering,
// in-band error sniffing, and close-code normalization; audio passes
// through untouched.
package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxgate/voxgate/internal/stt"
)

const (
	// DefaultConnectTimeout bounds the upstream handshake.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultCloseCode is sent when a session dies without a more
	// specific code.
	DefaultCloseCode = 1011

	// MaxPayloadBytes caps a single relayed frame.
	MaxPayloadBytes = 5 << 20

	writeWait = 10 * time.Second
)

// Conn is the surface the relay needs from either side of a session. Both
// the upstream dialer's connection and the server-side upgrade satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Proxy relays one or more sessions against a fixed upstream URL.
type Proxy struct {
	upstreamURL     *url.URL
	header          http.Header
	allowedControls map[string]bool
	knownControls   map[string]bool
	transformFirst  func([]byte) ([]byte, error)
	transformFrame  func([]byte) ([]byte, bool)
	detectError     func([]byte) *stt.ProviderError
	onError         func(*stt.ProviderError)
	onSuccess       func()
	onClose         func(time.Duration)
	connectTimeout  time.Duration
	maxPayload      int64
	logger          *slog.Logger
}

// UpstreamURL exposes the resolved target, mainly for diagnostics.
func (p *Proxy) UpstreamURL() *url.URL { return p.upstreamURL }

// normalizeCloseCode rewrites reserved and vendor-internal codes to the
// default so clients only ever see codes they are allowed to receive.
func normalizeCloseCode(code int) int {
	switch code {
	case websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure, websocket.CloseTLSHandshake:
		return DefaultCloseCode
	}
	if code < 1000 || code >= 5000 {
		return DefaultCloseCode
	}
	return code
}

// truncateReason keeps the close reason inside the 125-byte control frame
// budget, leaving room for the 2-byte code.
func truncateReason(reason string) string {
	const max = 120
	if len(reason) <= max {
		return reason
	}
	return reason[:max]
}
