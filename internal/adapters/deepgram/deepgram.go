// Package deepgram adapts Deepgram's listen API. Deepgram's realtime frames
// already match the gateway's canonical shape, so the adapter's work is URL
// construction and error sniffing.
package deepgram

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (*Adapter) Provider() providers.Provider { return providers.Deepgram }

// multiLanguageModels lists, per model family, the languages usable in
// code-switching mode. Requests outside the table fall back to detection.
var multiLanguageModels = map[string][]string{
	"nova-2": {"en", "es"},
	"nova-3": {"en", "es", "fr", "de", "hi", "ru", "pt", "ja", "it", "nl"},
}

// usesKeyterm reports whether the model takes keyterm prompting instead of
// the legacy keywords parameter.
func usesKeyterm(model string) bool {
	return strings.HasPrefix(model, "nova-3") || strings.HasPrefix(model, "parakeet")
}

func multiSupports(model string, languages []string) bool {
	for family, supported := range multiLanguageModels {
		if !strings.HasPrefix(model, family) {
			continue
		}
		for _, lang := range languages {
			found := false
			for _, s := range supported {
				if s == lang {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}

func languageParams(model string, languages []string) []wsurl.Param {
	switch len(languages) {
	case 0:
		return []wsurl.Param{{Key: "detect_language", Value: "true"}}
	case 1:
		return []wsurl.Param{{Key: "language", Value: languages[0]}}
	}
	var out []wsurl.Param
	if multiSupports(model, languages) {
		out = append(out, wsurl.Param{Key: "language", Value: "multi"})
	} else {
		out = append(out, wsurl.Param{Key: "detect_language", Value: "true"})
	}
	for _, lang := range languages {
		out = append(out, wsurl.Param{Key: "languages", Value: lang})
	}
	return out
}

func sessionParams(params stt.ListenParams) (string, []wsurl.Param) {
	model := params.Model
	if model == "" {
		model = providers.Deepgram.DefaultLiveModel()
	}
	out := []wsurl.Param{{Key: "model", Value: model}}
	out = append(out, languageParams(model, params.Languages)...)
	if params.InterimResults {
		out = append(out, wsurl.Param{Key: "interim_results", Value: "true"})
	}
	if params.Punctuate {
		out = append(out, wsurl.Param{Key: "punctuate", Value: "true"})
	}
	if params.SmartFormat {
		out = append(out, wsurl.Param{Key: "smart_format", Value: "true"})
	}
	if params.Diarize {
		out = append(out, wsurl.Param{Key: "diarize", Value: "true"})
	}
	keywordKey := "keywords"
	if usesKeyterm(model) {
		keywordKey = "keyterm"
	}
	for _, kw := range params.Keywords {
		out = append(out, wsurl.Param{Key: keywordKey, Value: kw})
	}
	return model, out
}

func (*Adapter) BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error) {
	if host == "" {
		host = providers.Deepgram.DefaultWSHost()
	}
	_, defaults := sessionParams(params)
	defaults = append(defaults,
		wsurl.Param{Key: "encoding", Value: "linear16"},
		wsurl.Param{Key: "sample_rate", Value: strconv.Itoa(params.SampleRate)},
		wsurl.Param{Key: "channels", Value: strconv.Itoa(params.Channels)},
	)
	return wsurl.Build(host, providers.Deepgram.WSPath(), wsurl.Merge(defaults, extra))
}

// Frames are already canonical, relay them verbatim.
func (*Adapter) ParseResponse([]byte) ([]stt.StreamResponse, bool) { return nil, false }

type errorFrame struct {
	Type        string `json:"type"`
	ErrCode     string `json:"err_code"`
	ErrMsg      string `json:"err_msg"`
	Description string `json:"description"`
}

var errCodeStatus = map[string]int{
	"INVALID_AUTH":             401,
	"INSUFFICIENT_PERMISSIONS": 403,
	"PAYMENT_REQUIRED":         402,
	"TOO_MANY_REQUESTS":        429,
	"BAD_REQUEST":              400,
	"INVALID_JSON":             400,
	"NOT_FOUND":                404,
}

func (*Adapter) DetectError(raw []byte) *stt.ProviderError {
	var frame errorFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil
	}
	if frame.ErrCode == "" && frame.Type != "Error" {
		return nil
	}
	status, ok := errCodeStatus[frame.ErrCode]
	if !ok {
		status = 500
	}
	msg := frame.ErrMsg
	if msg == "" {
		msg = frame.Description
	}
	return &stt.ProviderError{HTTPCode: status, Message: msg, ProviderCode: frame.ErrCode}
}
