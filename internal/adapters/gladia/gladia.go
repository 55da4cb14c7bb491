// Package gladia adapts Gladia's live API. Gladia never sees the client's
// websocket handshake credentials: a REST pre-flight trades the key for a
// session-scoped websocket URL, and the relay dials that.
package gladia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

type Adapter struct {
	httpClient *http.Client
	apiBase    string
}

func New(client *http.Client, apiBase string) *Adapter {
	if apiBase == "" {
		apiBase = providers.Gladia.DefaultAPIBase()
	}
	return &Adapter{httpClient: client, apiBase: apiBase}
}

func (*Adapter) Provider() providers.Provider { return providers.Gladia }

func (*Adapter) BuildWSURL(string, stt.ListenParams, []wsurl.Param) (*url.URL, error) {
	return nil, fmt.Errorf("gladia websocket URLs come from session init")
}

type sessionConfig struct {
	Encoding       string          `json:"encoding"`
	BitDepth       int             `json:"bit_depth"`
	SampleRate     int             `json:"sample_rate"`
	Channels       int             `json:"channels"`
	Model          string          `json:"model,omitempty"`
	LanguageConfig *languageConfig `json:"language_config,omitempty"`
	MessagesConfig messagesConfig  `json:"messages_config"`
}

type languageConfig struct {
	Languages     []string `json:"languages"`
	CodeSwitching bool     `json:"code_switching"`
}

type messagesConfig struct {
	ReceivePartialTranscripts bool `json:"receive_partial_transcripts"`
	ReceiveFinalTranscripts   bool `json:"receive_final_transcripts"`
}

func buildSessionConfig(params stt.ListenParams) sessionConfig {
	cfg := sessionConfig{
		Encoding:   "wav/pcm",
		BitDepth:   16,
		SampleRate: params.SampleRate,
		Channels:   params.Channels,
		Model:      params.Model,
		MessagesConfig: messagesConfig{
			ReceivePartialTranscripts: params.InterimResults,
			ReceiveFinalTranscripts:   true,
		},
	}
	if len(params.Languages) > 0 {
		cfg.LanguageConfig = &languageConfig{
			Languages:     params.Languages,
			CodeSwitching: len(params.Languages) > 1,
		}
	}
	return cfg
}

// InitSession performs the REST pre-flight. It runs before the client's
// upgrade is accepted so a vendor rejection surfaces as a plain HTTP error.
func (a *Adapter) InitSession(ctx context.Context, apiKey string, params stt.ListenParams) (stt.SessionHandle, error) {
	payload, err := json.Marshal(buildSessionConfig(params))
	if err != nil {
		return stt.SessionHandle{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/live", bytes.NewReader(payload))
	if err != nil {
		return stt.SessionHandle{}, err
	}
	name, value, ok := providers.Gladia.Auth().SessionInitHeader(apiKey)
	if !ok {
		return stt.SessionHandle{}, fmt.Errorf("missing gladia api key")
	}
	req.Header.Set(name, value)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return stt.SessionHandle{}, fmt.Errorf("gladia session init: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return stt.SessionHandle{}, &stt.ProviderError{HTTPCode: resp.StatusCode, Message: string(msg)}
	}

	var handle stt.SessionHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return stt.SessionHandle{}, fmt.Errorf("decode session init response: %w", err)
	}
	if handle.URL == "" {
		return stt.SessionHandle{}, fmt.Errorf("session init returned no websocket url")
	}
	return handle, nil
}

type liveWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type liveFrame struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		IsFinal   bool   `json:"is_final"`
		Utterance struct {
			Text       string     `json:"text"`
			Start      float64    `json:"start"`
			End        float64    `json:"end"`
			Confidence float64    `json:"confidence"`
			Words      []liveWord `json:"words"`
		} `json:"utterance"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"data"`
}

func (*Adapter) ParseResponse(raw []byte) ([]stt.StreamResponse, bool) {
	var f liveFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	switch f.Type {
	case "transcript":
		words := make([]stt.Word, 0, len(f.Data.Utterance.Words))
		for _, w := range f.Data.Utterance.Words {
			words = append(words, stt.Word{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Confidence,
			})
		}
		alt := stt.Alternative{
			Transcript: f.Data.Utterance.Text,
			Confidence: f.Data.Utterance.Confidence,
			Words:      words,
		}
		resp := stt.TranscriptResponse(0, alt, f.Data.IsFinal)
		resp.Start = f.Data.Utterance.Start
		resp.Duration = f.Data.Utterance.End - f.Data.Utterance.Start
		resp.RequestID = f.Data.ID
		return []stt.StreamResponse{resp}, true
	case "post_final_transcript":
		return []stt.StreamResponse{{Type: stt.ResponseControlAck, Control: f.Type}}, true
	case "speech_start", "speech_end":
		return []stt.StreamResponse{{Type: stt.ResponseControlAck, Control: f.Type}}, true
	}
	return nil, false
}

func (*Adapter) DetectError(raw []byte) *stt.ProviderError {
	var f liveFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f.Type != "error" {
		return nil
	}
	status := f.Data.Code
	if status < 400 || status >= 600 {
		status = 500
	}
	return &stt.ProviderError{HTTPCode: status, Message: f.Data.Message}
}
