package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voxgate/voxgate/internal/analytics"
	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/httpserver/httputil"
	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
)

type audioHandler struct {
	container *app.Container
}

func (h *audioHandler) transcriptions(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "multipart form required")
	}
	fileHeaders := form.File["file"]
	if len(fileHeaders) == 0 {
		return httputil.WriteError(c, fiber.StatusBadRequest, "file is required")
	}
	fh := fileHeaders[0]

	params := stt.DefaultListenParams()
	params.Model = strings.TrimSpace(c.FormValue("model"))
	params.Prompt = c.FormValue("prompt")
	params.Languages = append(params.Languages, form.Value["languages"]...)
	if lang := strings.TrimSpace(c.FormValue("language")); lang != "" {
		params.Languages = append(params.Languages, lang)
	}
	if v := c.FormValue("diarize"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			params.Diarize = parsed
		}
	}

	sel, err := h.container.Selector.Select(strings.TrimSpace(c.FormValue("provider")), params.Languages)
	if err != nil {
		var notConfigured *providers.NotConfiguredError
		if errors.As(err, &notConfigured) {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
		}
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	batch, ok := h.container.Adapters.Batch(sel.Provider)
	if !ok {
		return httputil.WriteError(c, fiber.StatusBadRequest, "provider does not support batch transcription")
	}

	src, err := fh.Open()
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "failed to open file")
	}
	defer src.Close()

	tracker := h.container.Health.Tracker(sel.Provider.String())
	result, err := batch.Transcribe(c.UserContext(), sel.APIKey(), params, src, fh.Filename)
	if err != nil {
		var provErr *stt.ProviderError
		if errors.As(err, &provErr) {
			tracker.RecordError(provErr.HTTPCode, provErr.Message)
			return httputil.WriteError(c, provErr.HTTPCode, provErr.Message)
		}
		h.container.Logger.Error("batch transcription failed",
			"provider", sel.Provider.String(),
			"error", err.Error())
		return httputil.WriteError(c, fiber.StatusBadGateway, "transcription failed")
	}
	tracker.RecordSuccess()

	h.container.Analytics.ReportStt(c.UserContext(), analytics.SttEvent{
		Provider:  sel.Provider.String(),
		Duration:  time.Duration(result.DurationSec * float64(time.Second)),
		Seconds:   result.DurationSec,
		Timestamp: time.Now().UTC(),
	})

	return c.JSON(result)
}
