package relay

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/voxgate/voxgate/internal/stt"
)

// UpstreamConnectCloseCode is sent to an already-upgraded client when the
// upstream dial fails without a mappable HTTP status.
const UpstreamConnectCloseCode = 4502

// Handle runs one relay session over an upgraded client connection. It
// dials the upstream, pumps both directions until either side ends, and
// reports the session duration through the OnClose hook.
func (p *Proxy) Handle(client Conn) error {
	start := time.Now()
	if p.onClose != nil {
		defer func() {
			duration := time.Since(start)
			go p.onClose(duration)
		}()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: p.connectTimeout}
	upstream, resp, err := dialer.Dial(p.upstreamURL.String(), p.header)
	if err != nil {
		perr := stt.NewProviderError(http.StatusBadGateway, "upstream connection failed")
		if resp != nil {
			perr = stt.NewProviderError(resp.StatusCode, resp.Status)
			resp.Body.Close()
		}
		code := perr.WSCloseCode()
		if resp == nil {
			code = UpstreamConnectCloseCode
		}
		reason := perr.Message
		if p.onError != nil {
			p.onError(perr)
		}
		p.logger.Warn("upstream dial failed",
			slog.String("upstream", p.upstreamURL.Host),
			slog.String("error", err.Error()))
		deadline := time.Now().Add(writeWait)
		_ = client.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, truncateReason(reason)), deadline)
		_ = client.Close()
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &session{proxy: p, client: client, upstream: upstream}
	s.run()

	if p.onSuccess != nil && !s.sawError() {
		p.onSuccess()
	}
	return nil
}

type closeInfo struct {
	code   int
	reason string
}

type session struct {
	proxy    *Proxy
	client   Conn
	upstream Conn

	closeOnce sync.Once

	mu      sync.Mutex
	pending *closeInfo
}

func (s *session) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.clientToUpstream()
	}()
	go func() {
		defer wg.Done()
		s.upstreamToClient()
	}()
	wg.Wait()
}

// shutdown closes both sides exactly once. The client gets the normalized
// code; the upstream always gets a normal closure since close semantics are
// a client-facing contract.
func (s *session) shutdown(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		clientMsg := websocket.FormatCloseMessage(normalizeCloseCode(code), truncateReason(reason))
		_ = s.client.WriteControl(websocket.CloseMessage, clientMsg, deadline)
		upstreamMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.upstream.WriteControl(websocket.CloseMessage, upstreamMsg, deadline)
		_ = s.client.Close()
		_ = s.upstream.Close()
	})
}

func (s *session) setPending(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = &closeInfo{code: code, reason: reason}
	}
}

func (s *session) takePending() *closeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *session) sawError() bool {
	return s.takePending() != nil
}

// controlKind extracts the control discriminator from a client text frame.
// Only frames whose type value is in the relay's known vocabulary count as
// control frames; everything else is session payload.
func (s *session) controlKind(data []byte) (string, bool) {
	if len(s.proxy.knownControls) == 0 {
		return "", false
	}
	kind := gjson.GetBytes(data, "type")
	if kind.Type != gjson.String {
		return "", false
	}
	if !s.proxy.knownControls[kind.Str] {
		return "", false
	}
	return kind.Str, true
}

func (s *session) clientToUpstream() {
	firstText := true
	for {
		messageType, data, err := s.client.ReadMessage()
		if err != nil {
			code, reason := closeCodeFromError(err)
			s.shutdown(code, reason)
			return
		}
		if int64(len(data)) > s.proxy.maxPayload {
			s.shutdown(websocket.CloseMessageTooBig, "payload too large")
			return
		}
		if messageType == websocket.TextMessage {
			if firstText {
				firstText = false
				if s.proxy.transformFirst != nil {
					transformed, terr := s.proxy.transformFirst(data)
					if terr != nil {
						s.proxy.logger.Warn("first message transform failed", slog.String("error", terr.Error()))
						s.shutdown(4400, "invalid first message")
						return
					}
					data = transformed
				}
			}
			if kind, isControl := s.controlKind(data); isControl && !s.proxy.allowedControls[kind] {
				continue
			}
		}
		if err := s.upstream.WriteMessage(messageType, data); err != nil {
			s.shutdown(DefaultCloseCode, "upstream write failed")
			return
		}
	}
}

func (s *session) upstreamToClient() {
	for {
		messageType, data, err := s.upstream.ReadMessage()
		if err != nil {
			code, reason := closeCodeFromError(err)
			if pending := s.takePending(); pending != nil {
				code, reason = pending.code, pending.reason
			}
			s.shutdown(code, reason)
			return
		}
		if messageType == websocket.TextMessage {
			if s.proxy.detectError != nil {
				if perr := s.proxy.detectError(data); perr != nil {
					s.setPending(perr.WSCloseCode(), perr.Message)
					if s.proxy.onError != nil {
						s.proxy.onError(perr)
					}
				}
			}
			if s.proxy.transformFrame != nil {
				if transformed, ok := s.proxy.transformFrame(data); ok {
					data = transformed
				}
			}
		}
		if err := s.client.WriteMessage(messageType, data); err != nil {
			s.shutdown(DefaultCloseCode, "client write failed")
			return
		}
	}
}

func closeCodeFromError(err error) (int, string) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Text
	}
	return DefaultCloseCode, ""
}
