package deepgram

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

func baseParams() stt.ListenParams {
	p := stt.DefaultListenParams()
	p.InterimResults = false
	p.Punctuate = false
	return p
}

func TestBuildWSURLNoLanguagesDetects(t *testing.T) {
	a := New()
	u, err := a.BuildWSURL("", baseParams(), nil)
	require.NoError(t, err)
	require.Equal(t, "wss", u.Scheme)
	require.Equal(t, "api.deepgram.com", u.Host)
	require.Equal(t, "/v1/listen", u.Path)
	q := u.Query()
	require.Equal(t, "nova-3", q.Get("model"))
	require.Equal(t, "true", q.Get("detect_language"))
	require.Empty(t, q.Get("language"))
}

func TestBuildWSURLSingleLanguage(t *testing.T) {
	p := baseParams()
	p.Languages = []string{"de"}
	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	require.Equal(t, "de", u.Query().Get("language"))
	require.Empty(t, u.Query().Get("detect_language"))
}

func TestBuildWSURLMultiLanguageSupported(t *testing.T) {
	p := baseParams()
	p.Languages = []string{"en", "es"}
	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "multi", q.Get("language"))
	require.Equal(t, []string{"en", "es"}, q["languages"])
}

func TestBuildWSURLMultiLanguageUnsupportedFallsBack(t *testing.T) {
	p := baseParams()
	p.Model = "nova-2"
	p.Languages = []string{"en", "fr"}
	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "true", q.Get("detect_language"))
	require.Empty(t, q.Get("language"))
	require.Equal(t, []string{"en", "fr"}, q["languages"])
}

func TestKeywordParamDependsOnModel(t *testing.T) {
	p := baseParams()
	p.Keywords = []string{"voxgate", "fiber"}

	u, err := New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"voxgate", "fiber"}, u.Query()["keyterm"])
	require.Empty(t, u.Query()["keywords"])

	p.Model = "nova-2"
	u, err = New().BuildWSURL("", p, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"voxgate", "fiber"}, u.Query()["keywords"])
	require.Empty(t, u.Query()["keyterm"])
}

func TestBuildWSURLLoopbackHost(t *testing.T) {
	u, err := New().BuildWSURL("127.0.0.1:8080", baseParams(), nil)
	require.NoError(t, err)
	require.Equal(t, "ws", u.Scheme)
}

func TestBuildWSURLClientParamsOverride(t *testing.T) {
	u, err := New().BuildWSURL("", baseParams(), []wsurl.Param{{Key: "sample_rate", Value: "48000"}})
	require.NoError(t, err)
	require.Equal(t, "48000", u.Query().Get("sample_rate"))
}

func TestDetectError(t *testing.T) {
	a := New()
	cases := []struct {
		raw       string
		wantCode  int
		wantClose int
	}{
		{`{"type":"Error","err_code":"INVALID_AUTH","err_msg":"invalid credentials"}`, 401, 4401},
		{`{"err_code":"TOO_MANY_REQUESTS","err_msg":"slow down"}`, 429, 4429},
		{`{"type":"Error","description":"something broke"}`, 500, 4500},
		{`{"err_code":"PAYMENT_REQUIRED"}`, 402, 4402},
	}
	for _, tc := range cases {
		perr := a.DetectError([]byte(tc.raw))
		require.NotNil(t, perr, tc.raw)
		require.Equal(t, tc.wantCode, perr.HTTPCode, tc.raw)
		require.Equal(t, tc.wantClose, perr.WSCloseCode(), tc.raw)
	}
}

func TestDetectErrorIgnoresTranscripts(t *testing.T) {
	raw := []byte(`{"type":"Results","channel":{"alternatives":[{"transcript":"hello"}]}}`)
	require.Nil(t, New().DetectError(raw))
	require.Nil(t, New().DetectError([]byte("not json")))
}

func TestBatchTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
		require.Equal(t, "nova-3", r.URL.Query().Get("model"))
		w.Write([]byte(`{
			"metadata": {"duration": 12.5},
			"results": {"channels": [{"alternatives": [{
				"transcript": "hello world",
				"confidence": 0.98,
				"words": [{"word":"hello","start":0.1,"end":0.4,"confidence":0.99}]
			}]}]}
		}`))
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	result, err := c.Transcribe(t.Context(), "dg-key", stt.DefaultListenParams(), nil, "audio.wav")
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.Equal(t, 12.5, result.DurationSec)
	require.Len(t, result.Words, 1)
}

func TestBatchTranscribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"err_code":"INVALID_AUTH"}`))
	}))
	defer srv.Close()

	c := NewBatchClient(srv.Client(), srv.URL)
	_, err := c.Transcribe(t.Context(), "bad", stt.DefaultListenParams(), nil, "audio.wav")
	var perr *stt.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 401, perr.HTTPCode)
}
