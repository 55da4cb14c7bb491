package public

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/voxgate/voxgate/internal/analytics"
	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/httpserver/httputil"
	"github.com/voxgate/voxgate/internal/llmproxy"
)

type chatHandler struct {
	container *app.Container
}

// llmCheckName keys the chat upstream's health tracker alongside the
// per-vendor speech trackers.
const llmCheckName = "llm"

func (h *chatHandler) completions(c *fiber.Ctx) error {
	req, err := llmproxy.ParseChatRequest(c.Body())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	tracker := h.container.Health.Tracker(llmCheckName)
	start := time.Now()
	resp, err := h.container.LLM.ChatCompletion(c.UserContext(), req)
	if err != nil {
		tracker.RecordError(fiber.StatusBadGateway, "upstream request failed")
		h.container.Logger.Error("chat completion request failed", "error", err.Error())
		return httputil.WriteError(c, fiber.StatusBadGateway, "upstream request failed")
	}
	if resp.StatusCode >= fiber.StatusBadRequest {
		tracker.RecordError(resp.StatusCode, resp.Status)
	} else {
		tracker.RecordSuccess()
	}

	if req.Stream {
		return h.streamCompletion(c, resp, start)
	}
	return h.forwardCompletion(c, resp, start)
}

func (h *chatHandler) forwardCompletion(c *fiber.Ctx, resp *http.Response, start time.Time) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadGateway, "upstream response read failed")
	}

	meta := llmproxy.StreamMetadata{
		GenerationID: gjson.GetBytes(body, "id").String(),
		Model:        gjson.GetBytes(body, "model").String(),
	}
	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		meta.Usage = &llmproxy.Usage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		}
	}
	h.reportGeneration(meta, resp.StatusCode, time.Since(start))

	c.Set(fiber.HeaderContentType, resp.Header.Get(fiber.HeaderContentType))
	return c.Status(resp.StatusCode).Send(body)
}

func (h *chatHandler) streamCompletion(c *fiber.Ctx, resp *http.Response, start time.Time) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")
	c.Status(resp.StatusCode)

	status := resp.StatusCode
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer resp.Body.Close()

		acc := &llmproxy.StreamAccumulator{}
		defer func() {
			h.reportGeneration(acc.Metadata(), status, time.Since(start))
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			acc.ProcessLine(line)
			if _, err := w.Write(line); err != nil {
				return
			}
			if _, err := w.WriteString("\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// reportGeneration records metrics synchronously and ships the analytics
// event from a goroutine so the cost lookup never delays the response.
func (h *chatHandler) reportGeneration(meta llmproxy.StreamMetadata, status int, latency time.Duration) {
	event := analytics.GenerationEvent{
		GenerationID: meta.GenerationID,
		Model:        meta.Model,
		LatencyMS:    latency.Milliseconds(),
		HTTPStatus:   status,
		Timestamp:    time.Now().UTC(),
	}
	if meta.Usage != nil {
		event.InputTokens = meta.Usage.PromptTokens
		event.OutputTokens = meta.Usage.CompletionTokens
	}

	if h.container.Observability != nil {
		h.container.Observability.RecordLLMRequest(event.Model, status, latency)
		h.container.Observability.RecordLLMTokens(event.Model, int64(event.InputTokens), int64(event.OutputTokens))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if event.GenerationID != "" {
			cost, err := h.container.LLM.FetchCost(ctx, event.GenerationID)
			if err != nil {
				h.container.Logger.Debug("generation cost lookup failed",
					"generation_id", event.GenerationID,
					"error", err.Error())
			} else {
				event.TotalCost = cost
			}
		}
		h.container.Analytics.ReportGeneration(ctx, event)
	}()
}
