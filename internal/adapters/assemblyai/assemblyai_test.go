package assemblyai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/stt"
)

func TestBuildWSURL(t *testing.T) {
	p := stt.DefaultListenParams()
	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	require.Equal(t, "wss", u.Scheme)
	require.Equal(t, "streaming.assemblyai.com", u.Host)
	require.Equal(t, "/v3/ws", u.Path)
	q := u.Query()
	require.Equal(t, "16000", q.Get("sample_rate"))
	require.Equal(t, "pcm_s16le", q.Get("encoding"))
	require.Equal(t, "true", q.Get("format_turns"))
}

func TestBuildWSURLKeyterms(t *testing.T) {
	p := stt.DefaultListenParams()
	p.Keywords = []string{"voxgate"}
	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	require.Equal(t, `["voxgate"]`, u.Query().Get("keyterms_prompt"))
}

func TestParseTurn(t *testing.T) {
	raw := []byte(`{
		"type": "Turn",
		"transcript": "hello world",
		"end_of_turn": true,
		"end_of_turn_confidence": 0.93,
		"words": [
			{"text":"hello","start":100,"end":400,"confidence":0.95,"word_is_final":true},
			{"text":"world","start":500,"end":900,"confidence":0.9,"word_is_final":true}
		]
	}`)
	responses, ok := New().ParseResponse(raw)
	require.True(t, ok)
	require.Len(t, responses, 1)
	resp := responses[0]
	require.Equal(t, stt.ResponseTranscript, resp.Type)
	require.True(t, resp.IsFinal)
	require.True(t, resp.SpeechFinal)
	require.Equal(t, "hello world", resp.Channel.Alternatives[0].Transcript)
	require.InDelta(t, 0.1, resp.Channel.Alternatives[0].Words[0].Start, 1e-9)
	require.InDelta(t, 0.9, resp.Channel.Alternatives[0].Words[1].End, 1e-9)
}

func TestParseBeginAndTermination(t *testing.T) {
	responses, ok := New().ParseResponse([]byte(`{"type":"Begin","id":"sess-123"}`))
	require.True(t, ok)
	require.Equal(t, stt.ResponseMetadata, responses[0].Type)
	require.Equal(t, "sess-123", responses[0].RequestID)

	responses, ok = New().ParseResponse([]byte(`{"type":"Termination","audio_duration_seconds":42.5}`))
	require.True(t, ok)
	require.Equal(t, 42.5, responses[0].Duration)
}

func TestParseUnknownPassesThrough(t *testing.T) {
	_, ok := New().ParseResponse([]byte(`{"type":"Mystery"}`))
	require.False(t, ok)
}

func TestDetectErrorTable(t *testing.T) {
	cases := []struct {
		message   string
		wantCode  int
		wantClose int
	}{
		{"Too many concurrent sessions", 429, 4429},
		{"Exceeded audio transmission rate limit", 429, 4429},
		{"Missing Authorization header", 401, 4401},
		{"Insufficient balance to start session", 402, 4402},
		{"Account disabled", 403, 4403},
		{"Session expired", 408, 4000},
		{"Input duration violation: chunk too long", 400, 4400},
		{"Invalid JSON received", 400, 4400},
		{"some novel failure", 500, 4500},
	}
	for _, tc := range cases {
		perr := New().DetectError([]byte(`{"error":"` + tc.message + `"}`))
		require.NotNil(t, perr, tc.message)
		require.Equal(t, tc.wantCode, perr.HTTPCode, tc.message)
		require.Equal(t, tc.wantClose, perr.WSCloseCode(), tc.message)
	}
}

func TestDetectErrorIgnoresTurns(t *testing.T) {
	require.Nil(t, New().DetectError([]byte(`{"type":"Turn","transcript":"hi"}`)))
}

func TestBatchTranscribe(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "aai-key", r.Header.Get("Authorization"))
		switch {
		case r.URL.Path == "/v2/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example.com/audio-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			require.Equal(t, "https://cdn.example.com/audio-1", body["audio_url"])
			require.Equal(t, true, body["language_detection"])
			json.NewEncoder(w).Encode(transcriptJob{ID: "t-1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/t-1":
			polls++
			if polls < 2 {
				json.NewEncoder(w).Encode(transcriptJob{ID: "t-1", Status: "processing"})
				return
			}
			w.Write([]byte(`{
				"id": "t-1", "status": "completed", "text": "hello world",
				"audio_duration": 3.5,
				"words": [{"text":"hello","start":0,"end":500,"confidence":0.9,"speaker":"A"}]
			}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	c.pollInterval = time.Millisecond

	result, err := c.Transcribe(t.Context(), "aai-key", stt.DefaultListenParams(), strings.NewReader("audio"), "a.wav")
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.Equal(t, 3.5, result.DurationSec)
	require.NotNil(t, result.Words[0].Speaker)
	require.Equal(t, 0, *result.Words[0].Speaker)
}

func TestBatchTranscribeErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "u"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			json.NewEncoder(w).Encode(transcriptJob{ID: "t-1", Status: "queued"})
		default:
			json.NewEncoder(w).Encode(transcriptJob{ID: "t-1", Status: "error", Error: "insufficient balance"})
		}
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	c.pollInterval = time.Millisecond

	_, err := c.Transcribe(t.Context(), "k", stt.DefaultListenParams(), strings.NewReader("x"), "a.wav")
	var perr *stt.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 402, perr.HTTPCode)
}
