// Package assemblyai adapts AssemblyAI's v3 streaming API and v2
// transcript API.
package assemblyai

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

func (*Adapter) Provider() providers.Provider { return providers.AssemblyAI }

func (*Adapter) BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error) {
	if host == "" {
		host = providers.AssemblyAI.DefaultWSHost()
	}
	defaults := []wsurl.Param{
		{Key: "sample_rate", Value: strconv.Itoa(params.SampleRate)},
		{Key: "encoding", Value: "pcm_s16le"},
	}
	if params.SmartFormat || params.Punctuate {
		defaults = append(defaults, wsurl.Param{Key: "format_turns", Value: "true"})
	}
	if len(params.Keywords) > 0 {
		terms, err := json.Marshal(params.Keywords)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, wsurl.Param{Key: "keyterms_prompt", Value: string(terms)})
	}
	return wsurl.Build(host, providers.AssemblyAI.WSPath(), wsurl.Merge(defaults, extra))
}

type streamWord struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	WordFinal  bool    `json:"word_is_final"`
}

type streamFrame struct {
	Type             string       `json:"type"`
	ID               string       `json:"id"`
	Transcript       string       `json:"transcript"`
	EndOfTurn        bool         `json:"end_of_turn"`
	TurnIsFormatted  bool         `json:"turn_is_formatted"`
	EndOfTurnConf    float64      `json:"end_of_turn_confidence"`
	Words            []streamWord `json:"words"`
	Error            string       `json:"error"`
	AudioDurationSec float64      `json:"audio_duration_seconds"`
}

func (*Adapter) ParseResponse(raw []byte) ([]stt.StreamResponse, bool) {
	var f streamFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	switch f.Type {
	case "Begin":
		return []stt.StreamResponse{{Type: stt.ResponseMetadata, RequestID: f.ID}}, true
	case "Termination":
		return []stt.StreamResponse{{
			Type:     stt.ResponseMetadata,
			Duration: f.AudioDurationSec,
		}}, true
	case "Turn":
	default:
		return nil, false
	}

	words := make([]stt.Word, 0, len(f.Words))
	for _, w := range f.Words {
		words = append(words, stt.Word{
			Word:       w.Text,
			Start:      w.Start / 1000,
			End:        w.End / 1000,
			Confidence: w.Confidence,
		})
	}
	alt := stt.Alternative{
		Transcript: f.Transcript,
		Confidence: f.EndOfTurnConf,
		Words:      words,
	}
	resp := stt.TranscriptResponse(0, alt, f.EndOfTurn)
	resp.SpeechFinal = f.EndOfTurn
	if len(words) > 0 {
		resp.Start = words[0].Start
		resp.Duration = words[len(words)-1].End - words[0].Start
	}
	return []stt.StreamResponse{resp}, true
}

// errorStatuses classifies error text by substring. The vendor sends free
// text rather than codes, so this list mirrors the messages seen in the
// wild; anything unmatched is treated as a server fault.
var errorStatuses = []struct {
	needle string
	status int
}{
	{"too many concurrent", 429},
	{"audio transmission rate", 429},
	{"missing authorization", 401},
	{"not authorized", 401},
	{"insufficient balance", 402},
	{"account disabled", 403},
	{"session expired", 408},
	{"input duration violation", 400},
	{"invalid message", 400},
	{"invalid json", 400},
}

func classifyError(message string) int {
	lower := strings.ToLower(message)
	for _, entry := range errorStatuses {
		if strings.Contains(lower, entry.needle) {
			return entry.status
		}
	}
	return 500
}

func (*Adapter) DetectError(raw []byte) *stt.ProviderError {
	var f streamFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f.Error == "" {
		return nil
	}
	return &stt.ProviderError{HTTPCode: classifyError(f.Error), Message: f.Error}
}
