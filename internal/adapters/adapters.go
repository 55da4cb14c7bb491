// Package adapters maps vendor wire formats onto the gateway's canonical
// types. Each vendor lives in its own subpackage; this package defines the
// contracts and the registry that hands routes the right implementation.
package adapters

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

// Realtime translates between one vendor's live websocket dialect and the
// canonical stream types.
type Realtime interface {
	Provider() providers.Provider

	// BuildWSURL produces the upstream websocket URL for a session. host
	// may be an operator override; empty means the vendor default. extra
	// carries client query params, which win over adapter defaults.
	BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error)

	// ParseResponse decodes one vendor text frame into canonical frames.
	// ok is false when the vendor already speaks the canonical shape and
	// the frame should pass through untouched.
	ParseResponse(raw []byte) (responses []stt.StreamResponse, ok bool)

	// DetectError inspects a vendor text frame for an in-band error.
	DetectError(raw []byte) *stt.ProviderError
}

// Batch transcribes a complete audio file through a vendor's REST surface.
type Batch interface {
	Provider() providers.Provider
	Transcribe(ctx context.Context, apiKey string, params stt.ListenParams, audio io.Reader, filename string) (stt.BatchResult, error)
}

// SessionIniter is implemented by adapters whose vendor requires a REST
// pre-flight that exchanges the credential for a session-scoped websocket
// URL. The pre-flight runs before the client upgrade is accepted.
type SessionIniter interface {
	InitSession(ctx context.Context, apiKey string, params stt.ListenParams) (stt.SessionHandle, error)
}

// URLSigner is implemented by adapters whose vendor authenticates through a
// signature embedded in the websocket URL itself.
type URLSigner interface {
	SignWSURL(ctx context.Context, u *url.URL) (*url.URL, error)
}

// HandshakeHeaderer lets an adapter attach extra headers to the upstream
// websocket handshake beyond the credential.
type HandshakeHeaderer interface {
	HandshakeHeaders() http.Header
}
