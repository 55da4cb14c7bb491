// Package openaistt adapts OpenAI's realtime transcription websocket and
// the audio transcriptions REST endpoint.
package openaistt

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (*Adapter) Provider() providers.Provider { return providers.OpenAI }

func (*Adapter) BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error) {
	if host == "" {
		host = providers.OpenAI.DefaultWSHost()
	}
	defaults := []wsurl.Param{{Key: "intent", Value: "transcription"}}
	return wsurl.Build(host, providers.OpenAI.WSPath(), wsurl.Merge(defaults, extra))
}

// HandshakeHeaders adds the beta opt-in the realtime endpoint requires.
func (*Adapter) HandshakeHeaders() http.Header {
	h := http.Header{}
	h.Set("OpenAI-Beta", "realtime=v1")
	return h
}

type realtimeEvent struct {
	Type       string `json:"type"`
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Error      struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (*Adapter) ParseResponse(raw []byte) ([]stt.StreamResponse, bool) {
	var ev realtimeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, false
	}
	switch ev.Type {
	case "conversation.item.input_audio_transcription.delta":
		alt := stt.Alternative{Transcript: ev.Delta}
		resp := stt.TranscriptResponse(0, alt, false)
		resp.RequestID = ev.ItemID
		return []stt.StreamResponse{resp}, true
	case "conversation.item.input_audio_transcription.completed":
		alt := stt.Alternative{Transcript: ev.Transcript}
		resp := stt.TranscriptResponse(0, alt, true)
		resp.SpeechFinal = true
		resp.RequestID = ev.ItemID
		return []stt.StreamResponse{resp}, true
	case "transcription_session.created", "session.created":
		return []stt.StreamResponse{{Type: stt.ResponseMetadata, RequestID: ev.EventID}}, true
	}
	return nil, false
}

var errorCodeStatus = map[string]int{
	"invalid_api_key":     401,
	"invalid_request":     400,
	"insufficient_quota":  402,
	"rate_limit_exceeded": 429,
	"session_expired":     408,
	"server_error":        500,
	"model_not_found":     404,
	"permission_denied":   403,
	"invalid_session":     400,
}

func (*Adapter) DetectError(raw []byte) *stt.ProviderError {
	var ev realtimeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil
	}
	if ev.Type != "error" {
		return nil
	}
	status, ok := errorCodeStatus[ev.Error.Code]
	if !ok {
		status = 500
	}
	return &stt.ProviderError{
		HTTPCode:     status,
		Message:      ev.Error.Message,
		ProviderCode: ev.Error.Code,
	}
}
