// Package public wires up the client-facing routes: the realtime relay,
// batch transcription, the chat completion proxy, and inbound billing
// webhooks.
package public

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/voxgate/voxgate/internal/app"
)

// Register mounts the public API onto the Fiber app.
func Register(fapp *fiber.App, container *app.Container) {
	listen := &listenHandler{container: container}
	fapp.Get("/listen", listen.prepare, websocket.New(listen.relay))

	chat := &chatHandler{container: container}
	fapp.Post("/v1/chat/completions", chat.completions)

	audio := &audioHandler{container: container}
	fapp.Post("/v1/audio/transcriptions", audio.transcriptions)

	billing := &billingHandler{container: container}
	fapp.Post("/webhooks/billing", billing.receive)
}
