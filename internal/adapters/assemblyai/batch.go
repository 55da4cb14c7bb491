package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
)

// BatchClient uses the v2 transcript API: upload the audio, create a
// transcript job, poll until it settles.
type BatchClient struct {
	httpClient   *http.Client
	apiBase      string
	pollInterval time.Duration
	pollLimit    int
}

func NewBatchClient(client *http.Client, apiBase string) *BatchClient {
	if apiBase == "" {
		apiBase = providers.AssemblyAI.DefaultAPIBase()
	}
	return &BatchClient{
		httpClient:   client,
		apiBase:      apiBase,
		pollInterval: 2 * time.Second,
		pollLimit:    300,
	}
}

func (*BatchClient) Provider() providers.Provider { return providers.AssemblyAI }

func (c *BatchClient) do(ctx context.Context, apiKey, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &stt.ProviderError{HTTPCode: resp.StatusCode, Message: string(msg)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type transcriptJob struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Error         string  `json:"error"`
	Text          string  `json:"text"`
	AudioDuration float64 `json:"audio_duration"`
	Words         []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
		Speaker    string  `json:"speaker"`
	} `json:"words"`
}

func (c *BatchClient) Transcribe(ctx context.Context, apiKey string, params stt.ListenParams, audio io.Reader, filename string) (stt.BatchResult, error) {
	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, apiKey, http.MethodPost, "/v2/upload", audio, "application/octet-stream", &uploaded); err != nil {
		return stt.BatchResult{}, fmt.Errorf("upload audio: %w", err)
	}

	request := map[string]any{
		"audio_url":      uploaded.UploadURL,
		"speaker_labels": params.Diarize,
	}
	if lang := params.PrimaryLanguage(); lang != "" {
		request["language_code"] = lang
	} else {
		request["language_detection"] = true
	}
	if params.Model != "" {
		request["speech_model"] = params.Model
	}
	payload, _ := json.Marshal(request)

	var job transcriptJob
	if err := c.do(ctx, apiKey, http.MethodPost, "/v2/transcript", bytes.NewReader(payload), "application/json", &job); err != nil {
		return stt.BatchResult{}, fmt.Errorf("create transcript: %w", err)
	}

	for i := 0; i < c.pollLimit; i++ {
		if err := c.do(ctx, apiKey, http.MethodGet, "/v2/transcript/"+job.ID, nil, "", &job); err != nil {
			return stt.BatchResult{}, err
		}
		switch job.Status {
		case "completed":
			return c.buildResult(job), nil
		case "error":
			return stt.BatchResult{}, &stt.ProviderError{HTTPCode: classifyError(job.Error), Message: job.Error}
		}
		select {
		case <-ctx.Done():
			return stt.BatchResult{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return stt.BatchResult{}, fmt.Errorf("transcript %s did not complete in time", job.ID)
}

func (c *BatchClient) buildResult(job transcriptJob) stt.BatchResult {
	result := stt.BatchResult{
		Text:        job.Text,
		DurationSec: job.AudioDuration,
		Provider:    providers.AssemblyAI.String(),
	}
	for _, w := range job.Words {
		word := stt.Word{
			Word:       w.Text,
			Start:      w.Start / 1000,
			End:        w.End / 1000,
			Confidence: w.Confidence,
		}
		if w.Speaker != "" && len(w.Speaker) == 1 && w.Speaker[0] >= 'A' && w.Speaker[0] <= 'Z' {
			speaker := int(w.Speaker[0] - 'A')
			word.Speaker = &speaker
		}
		result.Words = append(result.Words, word)
	}
	return result
}
