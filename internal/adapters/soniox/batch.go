package soniox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollLimit    = 300
)

// BatchClient drives the async transcription flow: upload the file, create
// a transcription job, poll until it settles, fetch the transcript, then
// delete both resources.
type BatchClient struct {
	httpClient   *http.Client
	apiBase      string
	pollInterval time.Duration
	pollLimit    int
}

func NewBatchClient(client *http.Client, apiBase string) *BatchClient {
	if apiBase == "" {
		apiBase = providers.Soniox.DefaultAPIBase()
	}
	return &BatchClient{
		httpClient:   client,
		apiBase:      apiBase,
		pollInterval: defaultPollInterval,
		pollLimit:    defaultPollLimit,
	}
}

func (*BatchClient) Provider() providers.Provider { return providers.Soniox }

func (c *BatchClient) do(ctx context.Context, apiKey, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("soniox request: %w", err)
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

type fileResource struct {
	ID string `json:"id"`
}

type transcriptionJob struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type transcriptResult struct {
	Text   string  `json:"text"`
	Tokens []token `json:"tokens"`
}

func (c *BatchClient) uploadFile(ctx context.Context, apiKey string, audio io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	var file fileResource
	if err := c.do(ctx, apiKey, http.MethodPost, "/files", &buf, mw.FormDataContentType(), &file); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	return file.ID, nil
}

func (c *BatchClient) createJob(ctx context.Context, apiKey, fileID string, params stt.ListenParams) (string, error) {
	model := params.Model
	if model == "" {
		model = providers.Soniox.DefaultBatchModel()
	}
	payload, _ := json.Marshal(map[string]any{
		"file_id":        fileID,
		"model":          model,
		"language_hints": params.Languages,
	})
	var job transcriptionJob
	if err := c.do(ctx, apiKey, http.MethodPost, "/transcriptions", bytes.NewReader(payload), "application/json", &job); err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return job.ID, nil
}

func (c *BatchClient) waitForJob(ctx context.Context, apiKey, jobID string) error {
	for i := 0; i < c.pollLimit; i++ {
		var job transcriptionJob
		if err := c.do(ctx, apiKey, http.MethodGet, "/transcriptions/"+jobID, nil, "", &job); err != nil {
			return err
		}
		switch job.Status {
		case "completed":
			return nil
		case "error":
			return &stt.ProviderError{HTTPCode: 500, Message: job.ErrorMessage}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return fmt.Errorf("transcription %s did not complete in time", jobID)
}

func (c *BatchClient) cleanup(apiKey, fileID, jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if jobID != "" {
		_ = c.do(ctx, apiKey, http.MethodDelete, "/transcriptions/"+jobID, nil, "", nil)
	}
	if fileID != "" {
		_ = c.do(ctx, apiKey, http.MethodDelete, "/files/"+fileID, nil, "", nil)
	}
}

func (c *BatchClient) Transcribe(ctx context.Context, apiKey string, params stt.ListenParams, audio io.Reader, filename string) (stt.BatchResult, error) {
	fileID, err := c.uploadFile(ctx, apiKey, audio, filename)
	if err != nil {
		return stt.BatchResult{}, err
	}
	jobID, err := c.createJob(ctx, apiKey, fileID, params)
	if err != nil {
		c.cleanup(apiKey, fileID, "")
		return stt.BatchResult{}, err
	}
	defer c.cleanup(apiKey, fileID, jobID)

	if err := c.waitForJob(ctx, apiKey, jobID); err != nil {
		return stt.BatchResult{}, err
	}

	var transcript transcriptResult
	if err := c.do(ctx, apiKey, http.MethodGet, "/transcriptions/"+jobID+"/transcript", nil, "", &transcript); err != nil {
		return stt.BatchResult{}, fmt.Errorf("fetch transcript: %w", err)
	}

	result := stt.BatchResult{
		Text:     transcript.Text,
		Provider: providers.Soniox.String(),
	}
	for _, t := range transcript.Tokens {
		if t.Text == finalizeMarker || t.Text == endpointMarker {
			continue
		}
		result.Words = append(result.Words, t.word())
	}
	if n := len(result.Words); n > 0 {
		result.DurationSec = result.Words[n-1].End
	}
	return result, nil
}
