package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

// BatchClient transcribes files through the pre-recorded listen endpoint.
type BatchClient struct {
	httpClient *http.Client
	apiBase    string
}

func NewBatchClient(client *http.Client, apiBase string) *BatchClient {
	if apiBase == "" {
		apiBase = providers.Deepgram.DefaultAPIBase()
	}
	return &BatchClient{httpClient: client, apiBase: apiBase}
}

func (*BatchClient) Provider() providers.Provider { return providers.Deepgram }

type batchResponse struct {
	Metadata struct {
		RequestID string   `json:"request_id"`
		Duration  float64  `json:"duration"`
		Models    []string `json:"models"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string     `json:"transcript"`
				Confidence float64    `json:"confidence"`
				Words      []stt.Word `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (c *BatchClient) Transcribe(ctx context.Context, apiKey string, params stt.ListenParams, audio io.Reader, filename string) (stt.BatchResult, error) {
	if params.Model == "" {
		params.Model = providers.Deepgram.DefaultBatchModel()
	}
	model, query := sessionParams(params)

	endpoint := c.apiBase + "/listen?" + wsurl.Encode(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return stt.BatchResult{}, err
	}
	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", contentTypeFor(filename))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stt.BatchResult{}, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return stt.BatchResult{}, &stt.ProviderError{HTTPCode: resp.StatusCode, Message: string(body)}
	}

	var decoded batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return stt.BatchResult{}, fmt.Errorf("decode deepgram response: %w", err)
	}
	result := stt.BatchResult{
		Model:       model,
		DurationSec: decoded.Metadata.Duration,
		Provider:    providers.Deepgram.String(),
	}
	for _, ch := range decoded.Results.Channels {
		if len(ch.Alternatives) == 0 {
			continue
		}
		alt := ch.Alternatives[0]
		if result.Text != "" {
			result.Text += "\n"
		}
		result.Text += alt.Transcript
		result.Words = append(result.Words, alt.Words...)
	}
	return result, nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
