package public

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/voxgate/voxgate/internal/adapters"
	"github.com/voxgate/voxgate/internal/analytics"
	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/httpserver/httputil"
	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/relay"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

type listenHandler struct {
	container *app.Container
}

const proxyLocal = "relay_proxy"

// reservedQueryKeys are consumed by the gateway itself; everything else is
// forwarded to the upstream vendor verbatim, in client order.
var reservedQueryKeys = map[string]bool{
	"provider":           true,
	"model":              true,
	"languages":          true,
	"language":           true,
	"sample_rate":        true,
	"channels":           true,
	"keywords":           true,
	"prompt":             true,
	"redemption_time_ms": true,
	"interim_results":    true,
	"diarize":            true,
	"punctuate":          true,
	"smart_format":       true,
	"canonical":          true,
}

type listenQuery struct {
	provider  string
	canonical bool
	params    stt.ListenParams
	extra     []wsurl.Param
}

func parseListenQuery(c *fiber.Ctx) listenQuery {
	q := listenQuery{
		provider: c.Query("provider"),
		params:   stt.DefaultListenParams(),
	}
	q.params.Model = c.Query("model")
	q.params.Prompt = c.Query("prompt")

	args := c.Context().QueryArgs()
	for _, v := range args.PeekMulti("languages") {
		q.params.Languages = append(q.params.Languages, string(v))
	}
	for _, v := range args.PeekMulti("language") {
		q.params.Languages = append(q.params.Languages, string(v))
	}
	for _, v := range args.PeekMulti("keywords") {
		q.params.Keywords = append(q.params.Keywords, string(v))
	}

	if v := c.Query("sample_rate"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.params.SampleRate = n
		}
	}
	if v := c.Query("channels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.params.Channels = n
		}
	}
	if v := c.Query("redemption_time_ms"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.params.RedemptionTimeMS = n
		}
	}
	q.params.InterimResults = queryBool(c, "interim_results", q.params.InterimResults)
	q.params.Diarize = queryBool(c, "diarize", q.params.Diarize)
	q.params.Punctuate = queryBool(c, "punctuate", q.params.Punctuate)
	q.params.SmartFormat = queryBool(c, "smart_format", q.params.SmartFormat)
	q.canonical = queryBool(c, "canonical", false)

	args.VisitAll(func(key, value []byte) {
		if reservedQueryKeys[string(key)] {
			return
		}
		q.extra = append(q.extra, wsurl.Param{Key: string(key), Value: string(value)})
	})

	return q
}

func queryBool(c *fiber.Ctx, key string, fallback bool) bool {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// prepare runs before the websocket upgrade: it resolves the vendor,
// performs any REST pre-flight, and builds the relay. Failures surface as
// plain HTTP errors so the client never holds a half-open socket.
func (h *listenHandler) prepare(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return httputil.WriteError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
	}

	q := parseListenQuery(c)

	sel, err := h.container.Selector.Select(q.provider, q.params.Languages)
	if err != nil {
		var notConfigured *providers.NotConfiguredError
		if errors.As(err, &notConfigured) {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
		}
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	adapter, ok := h.container.Adapters.Realtime(sel.Provider)
	if !ok {
		return httputil.WriteError(c, fiber.StatusBadRequest, "provider does not support realtime transcription")
	}

	proxy, err := h.buildProxy(c, adapter, sel, q)
	if err != nil {
		var provErr *stt.ProviderError
		if errors.As(err, &provErr) {
			return httputil.WriteError(c, provErr.HTTPCode, provErr.Message)
		}
		h.container.Logger.Error("relay setup failed",
			"provider", sel.Provider.String(),
			"error", err.Error())
		return httputil.WriteError(c, fiber.StatusBadGateway, "upstream session setup failed")
	}

	c.Locals(proxyLocal, proxy)
	return c.Next()
}

func (h *listenHandler) buildProxy(c *fiber.Ctx, adapter adapters.Realtime, sel providers.Selection, q listenQuery) (*relay.Proxy, error) {
	auth := sel.Provider.Auth()
	sessionID := uuid.NewString()
	sessionLogger := h.container.Logger.With(
		"session_id", sessionID,
		"provider", sel.Provider.String())
	tracker := h.container.Health.Tracker(sel.Provider.String())

	var upstream *url.URL
	var err error
	switch auth.Scheme {
	case providers.SchemeSessionInit:
		initer, ok := adapter.(adapters.SessionIniter)
		if !ok {
			return nil, errors.New("adapter missing session init support")
		}
		handle, initErr := initer.InitSession(c.UserContext(), sel.APIKey(), q.params)
		if initErr != nil {
			var provErr *stt.ProviderError
			if errors.As(initErr, &provErr) {
				tracker.RecordError(provErr.HTTPCode, provErr.Message)
			} else {
				tracker.RecordError(fiber.StatusBadGateway, initErr.Error())
			}
			return nil, initErr
		}
		upstream, err = wsurl.Normalize(handle.URL)
	default:
		upstream, err = adapter.BuildWSURL(sel.UpstreamURL, q.params, q.extra)
	}
	if err != nil {
		return nil, err
	}

	if signer, ok := adapter.(adapters.URLSigner); ok {
		upstream, err = signer.SignWSURL(c.UserContext(), upstream)
		if err != nil {
			return nil, err
		}
	}

	builder := relay.NewBuilder(upstream).
		ControlMessages(sel.Provider.ControlMessages(), providers.KnownControlKinds()).
		ConnectTimeout(h.container.Config.Relay.ConnectTimeout).
		MaxPayload(h.container.Config.Relay.MaxPayloadBytes).
		Logger(sessionLogger)

	if name, value, ok := auth.RequestHeader(sel.APIKey()); ok {
		builder.Header(name, value)
	}
	if auth.Scheme == providers.SchemeFirstMessage {
		apiKey := sel.APIKey()
		builder.TransformFirstMessage(func(payload []byte) ([]byte, error) {
			return auth.InjectKey(payload, apiKey)
		})
	}
	if hh, ok := adapter.(adapters.HandshakeHeaderer); ok {
		builder.Headers(hh.HandshakeHeaders())
	}

	if q.canonical {
		builder.TransformFrames(func(raw []byte) ([]byte, bool) {
			responses, ok := adapter.ParseResponse(raw)
			if !ok || len(responses) == 0 {
				return nil, false
			}
			return encodeCanonical(responses)
		})
	}

	var failed atomic.Bool
	builder.DetectErrors(adapter.DetectError, func(provErr *stt.ProviderError) {
		failed.Store(true)
		tracker.RecordError(provErr.HTTPCode, provErr.Message)
		sessionLogger.Warn("upstream transcription error",
			"status", provErr.HTTPCode,
			"message", provErr.Message)
	})
	builder.OnSuccess(tracker.RecordSuccess)

	providerName := sel.Provider.String()
	builder.OnClose(func(duration time.Duration) {
		outcome := "ok"
		if failed.Load() {
			outcome = "error"
		}
		if h.container.Observability != nil {
			h.container.Observability.RecordRelaySession(providerName, outcome, duration)
		}
		// The fiber ctx is recycled once the session ends, so the report
		// runs on its own context.
		h.container.Analytics.ReportStt(context.Background(), analytics.SttEvent{
			Provider:  providerName,
			Duration:  duration,
			Seconds:   duration.Seconds(),
			Timestamp: time.Now().UTC(),
		})
	})

	return builder.Build()
}

// relay runs after the upgrade completes. The proxy was built pre-upgrade,
// so all that remains is pumping frames.
func (h *listenHandler) relay(conn *websocket.Conn) {
	proxy, ok := conn.Locals(proxyLocal).(*relay.Proxy)
	if !ok {
		_ = conn.Close()
		return
	}
	if err := proxy.Handle(conn); err != nil {
		h.container.Logger.Debug("relay session ended", "error", err.Error())
	}
}
