package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tmaslen/serverless-fb-messenger/models"
	"github.com/tmaslen/serverless-fb-messenger/services"
)

// Sender is everything the admin API can ask of the Send and Profile APIs.
// *services.Messenger implements it.
type Sender interface {
	MessageSender
	SendImage(ctx context.Context, msg services.ImageMessage) error
	SendShareMessage(ctx context.Context, msg services.ShareMessage) error
	AddGetStartedPage(ctx context.Context, payload any) error
	RemoveGetStartedPage(ctx context.Context) error
}

// EventLister reads archived events. *services.EventArchive implements it.
type EventLister interface {
	RecentBySender(ctx context.Context, senderID string, limit int64) ([]models.ArchivedEvent, error)
}

// AdminHandler exposes send operations and profile commands over HTTP
type AdminHandler struct {
	sender  Sender
	archive EventLister
}

// NewAdminHandler creates the admin API. archive may be nil when the event archive is disabled.
func NewAdminHandler(sender Sender, archive EventLister) *AdminHandler {
	return &AdminHandler{sender: sender, archive: archive}
}

// Register mounts the admin routes on router
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/messages/text", h.SendText)
	router.Post("/messages/image", h.SendImage)
	router.Post("/messages/share", h.SendShare)
	router.Post("/get-started", h.AddGetStarted)
	router.Delete("/get-started", h.RemoveGetStarted)
	if h.archive != nil {
		router.Get("/events/:senderID", h.GetSenderEvents)
	}
}

// SendText sends a text message described by the request body
func (h *AdminHandler) SendText(c *fiber.Ctx) error {
	var req services.TextMessage
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" || req.Text == "" {
		return badRequest(c, "user_id and text are required")
	}
	return sendResult(c, h.sender.SendMessage(c.UserContext(), req))
}

// SendImage sends an image message described by the request body
func (h *AdminHandler) SendImage(c *fiber.Ctx) error {
	var req services.ImageMessage
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" || req.URL == "" {
		return badRequest(c, "user_id and url are required")
	}
	return sendResult(c, h.sender.SendImage(c.UserContext(), req))
}

// SendShare sends a share message described by the request body
func (h *AdminHandler) SendShare(c *fiber.Ctx) error {
	var req services.ShareMessage
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" || req.Title == "" {
		return badRequest(c, "user_id and title are required")
	}
	return sendResult(c, h.sender.SendShareMessage(c.UserContext(), req))
}

// AddGetStarted sets the Get Started payload
func (h *AdminHandler) AddGetStarted(c *fiber.Ctx) error {
	var req struct {
		Payload any `json:"payload"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Payload == nil {
		return badRequest(c, "payload is required")
	}
	return sendResult(c, h.sender.AddGetStartedPage(c.UserContext(), req.Payload))
}

// RemoveGetStarted removes the Get Started button
func (h *AdminHandler) RemoveGetStarted(c *fiber.Ctx) error {
	return sendResult(c, h.sender.RemoveGetStartedPage(c.UserContext()))
}

// GetSenderEvents lists the latest archived events of a sender
func (h *AdminHandler) GetSenderEvents(c *fiber.Ctx) error {
	senderID := c.Params("senderID")
	limit, err := strconv.ParseInt(c.Query("limit", "50"), 10, 64)
	if err != nil || limit < 1 || limit > 500 {
		return badRequest(c, "limit must be between 1 and 500")
	}

	events, err := h.archive.RecentBySender(c.UserContext(), senderID, limit)
	if err != nil {
		slog.Error("Failed to list archived events", "senderID", senderID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list events",
		})
	}

	return c.JSON(fiber.Map{
		"sender_id": senderID,
		"events":    events,
		"count":     len(events),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// sendResult maps the outcome of a Graph API call to the admin response.
// Remote rejections carry the remote error object through unchanged.
func sendResult(c *fiber.Ctx, err error) error {
	if err == nil {
		return c.JSON(fiber.Map{"status": "sent"})
	}

	var apiErr *services.RemoteAPIError
	if errors.As(err, &apiErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": apiErr.Raw,
		})
	}

	slog.Error("Admin send failed", "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": err.Error(),
	})
}
