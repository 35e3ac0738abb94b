package webhooks

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const (
	// IncorrectTokenReply is the body returned when verification fails
	IncorrectTokenReply = "Incorrect verify token"
	// ReceivedReply is the body returned for every notification POST
	ReceivedReply = "Messages received"
)

// VerifySubscription checks a subscription handshake. It returns the challenge
// when mode is "subscribe" and token matches verifyToken, and
// IncorrectTokenReply otherwise.
func VerifySubscription(mode, token, challenge, verifyToken string) (string, bool) {
	if verifyToken != "" && mode == "subscribe" && token == verifyToken {
		return challenge, true
	}
	return IncorrectTokenReply, false
}

// RegisterRoutes mounts the webhook verification and notification endpoints.
// GET /webhook answers a failed handshake with 403 and IncorrectTokenReply.
// POST /webhook always answers 200 with ReceivedReply.
func RegisterRoutes(app *fiber.App, verifyToken string, dispatcher *Dispatcher) {
	webhook := app.Group("/webhook")

	// Webhook verification endpoint
	webhook.Get("/", verifyWebhook(verifyToken))

	// Webhook event handler
	webhook.Post("/", handleWebhookEvent(dispatcher))
}

// verifyWebhook handles Facebook webhook verification. A matching handshake
// gets 200 with the challenge; anything else gets 403 (not 200) with
// IncorrectTokenReply as the body.
func verifyWebhook(verifyToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		reply, ok := VerifySubscription(mode, token, challenge, verifyToken)
		if ok {
			slog.Info("Webhook verified successfully")
			return c.SendString(reply)
		}

		slog.Warn("Webhook verification failed", "mode", mode, "tokenMatch", token == verifyToken)
		return c.Status(fiber.StatusForbidden).SendString(reply)
	}
}

// handleWebhookEvent dispatches the batch before replying. Facebook always
// gets a 200 so it keeps delivering; failures are only logged.
func handleWebhookEvent(dispatcher *Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WebhookEvent
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			slog.Error("Failed to parse webhook body", "error", err)
			return c.SendString(ReceivedReply)
		}

		if _, err := dispatcher.Dispatch(c.UserContext(), &body); err != nil {
			slog.Error("Webhook handlers reported errors", "error", err)
		}

		return c.SendString(ReceivedReply)
	}
}
