package soniox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/voxgate/voxgate/internal/stt"
)

func TestInitialConfig(t *testing.T) {
	p := stt.DefaultListenParams()
	p.Languages = []string{"en", "de"}
	p.Keywords = []string{"voxgate"}
	p.Diarize = true

	raw := InitialConfig(p)
	require.Equal(t, "stt-rt-v3", gjson.GetBytes(raw, "model").String())
	require.Equal(t, "pcm_s16le", gjson.GetBytes(raw, "audio_format").String())
	require.Equal(t, int64(16000), gjson.GetBytes(raw, "sample_rate").Int())
	require.Equal(t, int64(1), gjson.GetBytes(raw, "num_channels").Int())
	require.Equal(t, "en", gjson.GetBytes(raw, "language_hints.0").String())
	require.Equal(t, "voxgate", gjson.GetBytes(raw, "context.terms.0").String())
	require.True(t, gjson.GetBytes(raw, "enable_speaker_diarization").Bool())
	// No credential until the relay injects it.
	require.False(t, gjson.GetBytes(raw, "api_key").Exists())
}

func TestAliasModel(t *testing.T) {
	require.Equal(t, "stt-rt-v3", aliasModel(""))
	require.Equal(t, "stt-rt-v3", aliasModel("stt-v3"))
	require.Equal(t, "stt-rt-v3-preview", aliasModel("stt-rt-v3-preview"))
}

func TestBuildWSURL(t *testing.T) {
	u, err := New().BuildWSURL("", stt.DefaultListenParams(), nil)
	require.NoError(t, err)
	require.Equal(t, "wss://stt-rt.soniox.com/transcribe-websocket", u.String())
}

func TestParseResponseSplitsFinalAndInterim(t *testing.T) {
	raw := []byte(`{"tokens":[
		{"text":"hello","start_ms":100,"end_ms":400,"confidence":0.9,"is_final":true},
		{"text":"world","start_ms":450,"end_ms":800,"confidence":0.8,"is_final":true},
		{"text":"how","start_ms":900,"end_ms":1100,"confidence":0.7,"is_final":false}
	]}`)
	responses, ok := New().ParseResponse(raw)
	require.True(t, ok)
	require.Len(t, responses, 2)

	final := responses[0]
	require.Equal(t, stt.ResponseTranscript, final.Type)
	require.True(t, final.IsFinal)
	require.Equal(t, "hello world", final.Channel.Alternatives[0].Transcript)
	require.InDelta(t, 0.1, final.Start, 1e-9)
	require.InDelta(t, 0.7, final.Duration, 1e-9)

	interim := responses[1]
	require.False(t, interim.IsFinal)
	require.Equal(t, "how", interim.Channel.Alternatives[0].Transcript)
}

func TestParseResponseMarkers(t *testing.T) {
	raw := []byte(`{"tokens":[
		{"text":"done","start_ms":0,"end_ms":500,"confidence":1,"is_final":true},
		{"text":"<end>","is_final":true},
		{"text":"<fin>","is_final":true}
	]}`)
	responses, ok := New().ParseResponse(raw)
	require.True(t, ok)
	require.Len(t, responses, 1)
	resp := responses[0]
	require.True(t, resp.SpeechFinal)
	require.True(t, resp.FromFinalize)
	require.Equal(t, "done", resp.Channel.Alternatives[0].Transcript)
	require.Len(t, resp.Channel.Alternatives[0].Words, 1)
}

func TestParseResponseEmptyFramePassesThrough(t *testing.T) {
	_, ok := New().ParseResponse([]byte(`{"tokens":[]}`))
	require.False(t, ok)
}

func TestDetectError(t *testing.T) {
	perr := New().DetectError([]byte(`{"error_code":401,"error_message":"invalid api key"}`))
	require.NotNil(t, perr)
	require.Equal(t, 401, perr.HTTPCode)
	require.Equal(t, 4401, perr.WSCloseCode())

	perr = New().DetectError([]byte(`{"error_code":3,"error_message":"weird"}`))
	require.NotNil(t, perr)
	require.Equal(t, 500, perr.HTTPCode)

	require.Nil(t, New().DetectError([]byte(`{"tokens":[]}`)))
}

func TestBatchTranscribeFlow(t *testing.T) {
	var deleted []string
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sx-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			json.NewEncoder(w).Encode(fileResource{ID: "file-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcriptions":
			body := make(map[string]any)
			json.NewDecoder(r.Body).Decode(&body)
			require.Equal(t, "file-1", body["file_id"])
			require.Equal(t, "stt-async-v3", body["model"])
			json.NewEncoder(w).Encode(transcriptionJob{ID: "job-1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/transcriptions/job-1":
			polls++
			status := "processing"
			if polls >= 2 {
				status = "completed"
			}
			json.NewEncoder(w).Encode(transcriptionJob{ID: "job-1", Status: status})
		case r.Method == http.MethodGet && r.URL.Path == "/transcriptions/job-1/transcript":
			json.NewEncoder(w).Encode(transcriptResult{
				Text: "hello world",
				Tokens: []token{
					{Text: "hello", StartMS: 0, EndMS: 500, Confidence: 0.9, IsFinal: true},
					{Text: "world", StartMS: 600, EndMS: 1000, Confidence: 0.8, IsFinal: true},
				},
			})
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	c.pollInterval = time.Millisecond

	result, err := c.Transcribe(t.Context(), "sx-key", stt.DefaultListenParams(), strings.NewReader("audio-bytes"), "audio.wav")
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.Len(t, result.Words, 2)
	require.InDelta(t, 1.0, result.DurationSec, 1e-9)
	require.Equal(t, []string{"/transcriptions/job-1", "/files/file-1"}, deleted)
}

func TestBatchTranscribeJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files":
			json.NewEncoder(w).Encode(fileResource{ID: "file-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcriptions":
			json.NewEncoder(w).Encode(transcriptionJob{ID: "job-1", Status: "queued"})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(transcriptionJob{ID: "job-1", Status: "error", ErrorMessage: "bad audio"})
		}
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	c.pollInterval = time.Millisecond

	_, err := c.Transcribe(t.Context(), "sx-key", stt.DefaultListenParams(), strings.NewReader("x"), "a.wav")
	var perr *stt.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Message, "bad audio")
}
