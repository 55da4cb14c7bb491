package llmproxy

import (
	"bytes"
	"encoding/json"
)

// Usage mirrors the usage object upstream chunks carry.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamMetadata is what the proxy learns from watching a stream go by:
// the generation id and model from the first chunk that has them, and the
// last usage block seen.
type StreamMetadata struct {
	GenerationID string
	Model        string
	Usage        *Usage
}

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// StreamAccumulator folds SSE lines into StreamMetadata as they stream
// through to the client. It never fails: malformed lines are skipped so
// accounting problems cannot break a live stream.
type StreamAccumulator struct {
	meta StreamMetadata
}

type streamChunk struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Usage *Usage `json:"usage"`
}

// ProcessLine consumes one line of the SSE body.
func (a *StreamAccumulator) ProcessLine(line []byte) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 || bytes.Equal(payload, doneMarker) {
		return
	}
	var chunk streamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return
	}
	if a.meta.GenerationID == "" && chunk.ID != "" {
		a.meta.GenerationID = chunk.ID
	}
	if a.meta.Model == "" && chunk.Model != "" {
		a.meta.Model = chunk.Model
	}
	if chunk.Usage != nil {
		usage := *chunk.Usage
		a.meta.Usage = &usage
	}
}

func (a *StreamAccumulator) Metadata() StreamMetadata { return a.meta }
