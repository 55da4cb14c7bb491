package public

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/httpserver/httputil"
	"github.com/voxgate/voxgate/internal/webhook"
)

type billingHandler struct {
	container *app.Container
}

type billingEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// receive accepts signed billing notifications from the operator's billing
// system. The signature check happens before the body is parsed so forged
// payloads never reach a decoder.
func (h *billingHandler) receive(c *fiber.Ctx) error {
	secret := h.container.Config.Billing.WebhookSecret
	if secret == "" {
		return httputil.WriteError(c, fiber.StatusNotFound, "billing webhooks not configured")
	}

	signature := c.Get(webhook.SignatureHeader)
	if !webhook.Verify(secret, c.Body(), signature) {
		return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid signature")
	}

	var event billingEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if event.Type == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "event type is required")
	}

	h.container.Logger.Info("billing event received", "type", event.Type)
	return c.SendStatus(fiber.StatusNoContent)
}
