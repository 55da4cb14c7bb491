package public

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func chatRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestChatCompletionsRejectsInvalidBody(t *testing.T) {
	fapp, _, _ := newTestApp(t, testConfig())

	resp, err := fapp.Test(chatRequest(`{"model":"x"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatCompletionsForwardsAndReports(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/chat/completions":
			require.Equal(t, "Bearer or-test", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			require.Equal(t, "latency", gjson.GetBytes(body, "provider.sort").String())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"gen-1","model":"openai/gpt-4o-mini","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`))
		case strings.HasPrefix(r.URL.Path, "/generation"):
			require.Equal(t, "gen-1", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"data":{"id":"gen-1","total_cost":0.00234}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.LLM.BaseURL = upstream.URL
	fapp, container, reporter := newTestApp(t, cfg)

	resp, err := fapp.Test(chatRequest(`{"model":"openai/gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := container.Health.Tracker(llmCheckName).Snapshot()
	require.Equal(t, 1, snap.TotalRequests)
	require.Zero(t, snap.ErrorRate)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "gen-1", gjson.GetBytes(body, "id").String())

	require.Eventually(t, func() bool {
		event, ok := reporter.lastGeneration()
		return ok && event.TotalCost.String() == "0.00234"
	}, 2*time.Second, 10*time.Millisecond)

	event, _ := reporter.lastGeneration()
	require.Equal(t, "gen-1", event.GenerationID)
	require.Equal(t, 12, event.InputTokens)
	require.Equal(t, 4, event.OutputTokens)
	require.Equal(t, http.StatusOK, event.HTTPStatus)
}

func TestChatCompletionsStreamsSSE(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/generation") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"id":"gen-2","model":"openai/gpt-4o-mini","choices":[{"delta":{"content":"hel"}}]}`,
			`data: {"id":"gen-2","choices":[{"delta":{"content":"lo"}}],"usage":{"prompt_tokens":8,"completion_tokens":1,"total_tokens":9}}`,
			`data: [DONE]`,
		}
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n\n")
		}
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.LLM.BaseURL = upstream.URL
	fapp, _, reporter := newTestApp(t, cfg)

	resp, err := fapp.Test(chatRequest(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"content":"hel"`)
	require.Contains(t, string(body), "data: [DONE]")

	require.Eventually(t, func() bool {
		event, ok := reporter.lastGeneration()
		return ok && event.GenerationID == "gen-2"
	}, 2*time.Second, 10*time.Millisecond)

	event, _ := reporter.lastGeneration()
	require.Equal(t, 8, event.InputTokens)
	require.Equal(t, 1, event.OutputTokens)
	require.True(t, event.TotalCost.IsZero())
}

func TestChatCompletionsUpstreamErrorPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.LLM.BaseURL = upstream.URL
	fapp, container, _ := newTestApp(t, cfg)

	resp, err := fapp.Test(chatRequest(`{"messages":[{"role":"user","content":"hi"}]}`), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	snap := container.Health.Tracker(llmCheckName).Snapshot()
	require.NotNil(t, snap.LastError)
	require.Equal(t, http.StatusTooManyRequests, snap.LastError.HTTPCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Contains(t, decoded, "error")
}
