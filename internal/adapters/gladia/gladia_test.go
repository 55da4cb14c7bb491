package gladia

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/stt"
)

func TestInitSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/live", r.URL.Path)
		require.Equal(t, "gl-key", r.Header.Get("X-Gladia-Key"))

		var cfg map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		require.Equal(t, "wav/pcm", cfg["encoding"])
		require.Equal(t, float64(16), cfg["bit_depth"])
		require.Equal(t, float64(16000), cfg["sample_rate"])

		w.Write([]byte(`{"id":"s1","url":"wss://x/y"}`))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	handle, err := a.InitSession(t.Context(), "gl-key", stt.DefaultListenParams())
	require.NoError(t, err)
	require.Equal(t, "s1", handle.ID)
	require.Equal(t, "wss://x/y", handle.URL)
}

func TestInitSessionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.InitSession(t.Context(), "bad", stt.DefaultListenParams())
	var perr *stt.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 401, perr.HTTPCode)
}

func TestSessionConfigLanguages(t *testing.T) {
	p := stt.DefaultListenParams()
	p.Languages = []string{"en", "fr"}
	cfg := buildSessionConfig(p)
	require.NotNil(t, cfg.LanguageConfig)
	require.True(t, cfg.LanguageConfig.CodeSwitching)

	p.Languages = []string{"en"}
	cfg = buildSessionConfig(p)
	require.False(t, cfg.LanguageConfig.CodeSwitching)

	p.Languages = nil
	require.Nil(t, buildSessionConfig(p).LanguageConfig)
}

func TestParseTranscript(t *testing.T) {
	raw := []byte(`{
		"type": "transcript",
		"data": {
			"id": "utt-1",
			"is_final": true,
			"utterance": {
				"text": "bonjour le monde",
				"start": 1.2,
				"end": 2.4,
				"confidence": 0.91,
				"words": [{"word":"bonjour","start":1.2,"end":1.6,"confidence":0.95}]
			}
		}
	}`)
	responses, ok := New(nil, "").ParseResponse(raw)
	require.True(t, ok)
	resp := responses[0]
	require.Equal(t, stt.ResponseTranscript, resp.Type)
	require.True(t, resp.IsFinal)
	require.Equal(t, "bonjour le monde", resp.Channel.Alternatives[0].Transcript)
	require.InDelta(t, 1.2, resp.Start, 1e-9)
	require.InDelta(t, 1.2, resp.Duration, 1e-9)
}

func TestParseLifecycleEvents(t *testing.T) {
	responses, ok := New(nil, "").ParseResponse([]byte(`{"type":"speech_end","data":{}}`))
	require.True(t, ok)
	require.Equal(t, stt.ResponseControlAck, responses[0].Type)

	_, ok = New(nil, "").ParseResponse([]byte(`{"type":"audio_chunk","data":{}}`))
	require.False(t, ok)
}

func TestDetectError(t *testing.T) {
	perr := New(nil, "").DetectError([]byte(`{"type":"error","data":{"code":429,"message":"too many sessions"}}`))
	require.NotNil(t, perr)
	require.Equal(t, 429, perr.HTTPCode)
	require.Equal(t, 4429, perr.WSCloseCode())

	require.Nil(t, New(nil, "").DetectError([]byte(`{"type":"transcript","data":{}}`)))
}
