package openaistt

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
)

// BatchClient wraps the official SDK for file transcription.
type BatchClient struct {
	apiBase string
	extra   []option.RequestOption
}

func NewBatchClient(apiBase string, extra ...option.RequestOption) *BatchClient {
	return &BatchClient{apiBase: apiBase, extra: extra}
}

func (*BatchClient) Provider() providers.Provider { return providers.OpenAI }

func (c *BatchClient) Transcribe(ctx context.Context, apiKey string, params stt.ListenParams, audio io.Reader, filename string) (stt.BatchResult, error) {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.apiBase != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(c.apiBase, "/")))
	}
	opts = append(opts, c.extra...)
	client := openai.NewClient(opts...)

	model := params.Model
	if model == "" {
		model = providers.OpenAI.DefaultBatchModel()
	}
	req := openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, "application/octet-stream"),
		Model: openai.AudioModel(model),
	}
	if lang := params.PrimaryLanguage(); lang != "" {
		req.Language = openai.String(lang)
	}
	if prompt := strings.TrimSpace(params.Prompt); prompt != "" {
		req.Prompt = openai.String(prompt)
	}

	resp, err := client.Audio.Transcriptions.New(ctx, req)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return stt.BatchResult{}, &stt.ProviderError{HTTPCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return stt.BatchResult{}, err
	}
	return stt.BatchResult{
		Text:     resp.Text,
		Model:    model,
		Provider: providers.OpenAI.String(),
	}, nil
}
