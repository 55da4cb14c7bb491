// Package llmproxy forwards chat completion traffic to an OpenAI-style
// aggregator, picking fallback model lists and collecting usage metadata
// without interpreting the conversation itself.
package llmproxy

import (
	"encoding/json"
	"fmt"
)

// ChatRequest is a client chat completion body. Only the fields the proxy
// routes on are decoded; everything else is carried through byte-for-byte
// so new upstream parameters work without gateway changes.
type ChatRequest struct {
	Model      string
	Stream     bool
	HasTools   bool
	ToolChoice string

	fields map[string]json.RawMessage
}

func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if _, ok := fields["messages"]; !ok {
		return nil, fmt.Errorf("messages is required")
	}

	req := &ChatRequest{fields: fields}
	if raw, ok := fields["model"]; ok {
		_ = json.Unmarshal(raw, &req.Model)
	}
	if raw, ok := fields["stream"]; ok {
		_ = json.Unmarshal(raw, &req.Stream)
	}
	if raw, ok := fields["tools"]; ok {
		var tools []json.RawMessage
		if err := json.Unmarshal(raw, &tools); err == nil && len(tools) > 0 {
			req.HasTools = true
		}
	}
	if raw, ok := fields["tool_choice"]; ok {
		// tool_choice may be an object; only the string form matters here.
		_ = json.Unmarshal(raw, &req.ToolChoice)
		if req.ToolChoice == "" {
			req.ToolChoice = "object"
		}
	}
	return req, nil
}

// NeedsToolCalling reports whether the request exercises tool calling and
// therefore needs the tool-capable model list.
func (r *ChatRequest) NeedsToolCalling() bool {
	return r.HasTools && r.ToolChoice != "none"
}

// UpstreamBody renders the body sent upstream. The client's model field is
// replaced with the gateway's fallback list unless the client pinned a
// model explicitly, and provider routing prefers the lowest-latency
// backend.
func (r *ChatRequest) UpstreamBody(models []string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields)+2)
	for k, v := range r.fields {
		out[k] = v
	}
	if r.Model == "" && len(models) > 0 {
		delete(out, "model")
		encoded, err := json.Marshal(models)
		if err != nil {
			return nil, err
		}
		out["models"] = encoded
	}
	if _, ok := out["provider"]; !ok {
		out["provider"] = json.RawMessage(`{"sort":"latency"}`)
	}
	return json.Marshal(out)
}
