// Package soniox adapts the Soniox realtime and async transcription APIs.
// Soniox authenticates through the first websocket message and replies with
// token streams, so this adapter does more translation work than most.
package soniox

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (*Adapter) Provider() providers.Provider { return providers.Soniox }

// aliasModel maps shorthand model names onto the realtime identifiers the
// API expects.
func aliasModel(model string) string {
	switch model {
	case "", "stt-v3":
		return providers.Soniox.DefaultLiveModel()
	}
	return model
}

func (*Adapter) BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error) {
	if host == "" {
		host = providers.Soniox.DefaultWSHost()
	}
	// Session setup travels in the first message, not the URL.
	return wsurl.Build(host, providers.Soniox.WSPath(), extra)
}

type initialConfig struct {
	APIKey                   string       `json:"api_key,omitempty"`
	Model                    string       `json:"model"`
	AudioFormat              string       `json:"audio_format"`
	SampleRate               int          `json:"sample_rate"`
	NumChannels              int          `json:"num_channels"`
	LanguageHints            []string     `json:"language_hints,omitempty"`
	Context                  *termContext `json:"context,omitempty"`
	EnableEndpointDetection  bool         `json:"enable_endpoint_detection"`
	EnableSpeakerDiarization bool         `json:"enable_speaker_diarization,omitempty"`
}

type termContext struct {
	Terms []string `json:"terms"`
}

// InitialConfig renders the session-opening message. The credential field
// is left empty; the relay splices it in on the way upstream.
func InitialConfig(params stt.ListenParams) []byte {
	cfg := initialConfig{
		Model:                   aliasModel(params.Model),
		AudioFormat:             "pcm_s16le",
		SampleRate:              params.SampleRate,
		NumChannels:             params.Channels,
		LanguageHints:           params.Languages,
		EnableEndpointDetection: true,
	}
	if params.Diarize {
		cfg.EnableSpeakerDiarization = true
	}
	if len(params.Keywords) > 0 {
		cfg.Context = &termContext{Terms: params.Keywords}
	}
	out, _ := json.Marshal(cfg)
	return out
}

// Marker tokens delimit stream state rather than carrying words.
const (
	finalizeMarker = "<fin>"
	endpointMarker = "<end>"
)

type token struct {
	Text       string  `json:"text"`
	StartMS    float64 `json:"start_ms"`
	EndMS      float64 `json:"end_ms"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
	Speaker    *int    `json:"speaker,omitempty"`
	Language   string  `json:"language,omitempty"`
}

type frame struct {
	Tokens       []token `json:"tokens"`
	ErrorCode    int     `json:"error_code"`
	ErrorMessage string  `json:"error_message"`
	Finished     bool    `json:"finished"`
}

func (t token) word() stt.Word {
	return stt.Word{
		Word:       strings.TrimSpace(t.Text),
		Start:      t.StartMS / 1000,
		End:        t.EndMS / 1000,
		Confidence: t.Confidence,
		Speaker:    t.Speaker,
		Language:   t.Language,
	}
}

func buildAlternative(words []stt.Word) stt.Alternative {
	var parts []string
	var confidence float64
	for _, w := range words {
		parts = append(parts, w.Word)
		confidence += w.Confidence
	}
	if len(words) > 0 {
		confidence /= float64(len(words))
	}
	return stt.Alternative{
		Transcript: strings.Join(parts, " "),
		Confidence: confidence,
		Words:      words,
	}
}

// ParseResponse splits a token frame into at most two canonical frames: one
// for finalized tokens and one for the in-flight hypothesis. Marker tokens
// flip flags instead of becoming words.
func (*Adapter) ParseResponse(raw []byte) ([]stt.StreamResponse, bool) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	if f.ErrorCode != 0 {
		return nil, false
	}

	var finalWords, interimWords []stt.Word
	sawFinalize := false
	sawEndpoint := false
	for _, t := range f.Tokens {
		switch t.Text {
		case finalizeMarker:
			sawFinalize = true
			continue
		case endpointMarker:
			sawEndpoint = true
			continue
		}
		if t.IsFinal {
			finalWords = append(finalWords, t.word())
		} else {
			interimWords = append(interimWords, t.word())
		}
	}

	var out []stt.StreamResponse
	if len(finalWords) > 0 || sawFinalize || sawEndpoint {
		resp := stt.TranscriptResponse(0, buildAlternative(finalWords), true)
		resp.SpeechFinal = sawEndpoint
		resp.FromFinalize = sawFinalize
		if len(finalWords) > 0 {
			resp.Start = finalWords[0].Start
			resp.Duration = finalWords[len(finalWords)-1].End - finalWords[0].Start
		}
		out = append(out, resp)
	}
	if len(interimWords) > 0 {
		resp := stt.TranscriptResponse(0, buildAlternative(interimWords), false)
		resp.Start = interimWords[0].Start
		resp.Duration = interimWords[len(interimWords)-1].End - interimWords[0].Start
		out = append(out, resp)
	}
	if out == nil && f.Finished {
		out = append(out, stt.StreamResponse{Type: stt.ResponseMetadata})
	}
	return out, out != nil
}

func (*Adapter) DetectError(raw []byte) *stt.ProviderError {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f.ErrorCode == 0 {
		return nil
	}
	status := f.ErrorCode
	if status < 400 || status >= 600 {
		status = 500
	}
	return &stt.ProviderError{HTTPCode: status, Message: f.ErrorMessage}
}
