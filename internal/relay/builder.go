package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/voxgate/voxgate/internal/stt"
)

// Builder assembles a Proxy. Misconfiguration surfaces once, at Build.
type Builder struct {
	proxy Proxy
	err   error
}

func NewBuilder(upstream *url.URL) *Builder {
	b := &Builder{proxy: Proxy{
		upstreamURL:    upstream,
		header:         http.Header{},
		connectTimeout: DefaultConnectTimeout,
		maxPayload:     MaxPayloadBytes,
		logger:         slog.Default(),
	}}
	if upstream == nil {
		b.err = fmt.Errorf("upstream url is required")
	}
	return b
}

// Header adds a handshake header for the upstream dial.
func (b *Builder) Header(name, value string) *Builder {
	b.proxy.header.Set(name, value)
	return b
}

// Headers merges a full header set into the handshake.
func (b *Builder) Headers(h http.Header) *Builder {
	for name, values := range h {
		for _, v := range values {
			b.proxy.header.Add(name, v)
		}
	}
	return b
}

// ControlMessages declares which control kinds the upstream understands and
// the full vocabulary the relay should treat as control frames. Recognized
// kinds outside the allowed list are dropped instead of forwarded.
func (b *Builder) ControlMessages(allowed []string, known map[string]bool) *Builder {
	b.proxy.allowedControls = make(map[string]bool, len(allowed))
	for _, kind := range allowed {
		b.proxy.allowedControls[kind] = true
	}
	b.proxy.knownControls = known
	return b
}

// TransformFirstMessage rewrites the first client text frame before it goes
// upstream. Binary frames pass through without consuming the transform.
func (b *Builder) TransformFirstMessage(fn func([]byte) ([]byte, error)) *Builder {
	b.proxy.transformFirst = fn
	return b
}

// TransformFrames rewrites upstream text frames before they reach the
// client. fn returns false to pass the frame through untouched.
func (b *Builder) TransformFrames(fn func([]byte) ([]byte, bool)) *Builder {
	b.proxy.transformFrame = fn
	return b
}

// DetectErrors sniffs upstream text frames for in-band vendor errors. The
// frame still reaches the client; the detected error decides the close code
// when the upstream eventually drops the session. onError also fires when
// the upstream dial itself is rejected.
func (b *Builder) DetectErrors(detect func([]byte) *stt.ProviderError, onError func(*stt.ProviderError)) *Builder {
	b.proxy.detectError = detect
	b.proxy.onError = onError
	return b
}

// OnSuccess runs after a session ends without a sniffed upstream error.
func (b *Builder) OnSuccess(fn func()) *Builder {
	b.proxy.onSuccess = fn
	return b
}

// OnClose receives the session duration after both pumps stop.
func (b *Builder) OnClose(fn func(time.Duration)) *Builder {
	b.proxy.onClose = fn
	return b
}

func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.proxy.connectTimeout = d
	}
	return b
}

func (b *Builder) MaxPayload(bytes int64) *Builder {
	if bytes > 0 {
		b.proxy.maxPayload = bytes
	}
	return b
}

func (b *Builder) Logger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.proxy.logger = logger
	}
	return b
}

func (b *Builder) Build() (*Proxy, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := b.proxy
	return &p, nil
}
