package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmaslen/serverless-fb-messenger/models"
	"github.com/tmaslen/serverless-fb-messenger/services"
	"github.com/tmaslen/serverless-fb-messenger/webhooks"
)

// EventRecorder stores inbound events. *services.EventArchive implements it.
type EventRecorder interface {
	Record(ctx context.Context, event *models.ArchivedEvent) error
}

// Broadcaster pushes messages to live dashboards. *services.Monitor implements it.
type Broadcaster interface {
	Broadcast(message services.BroadcastMessage)
}

// MessageSender sends text replies. *services.Messenger implements it.
type MessageSender interface {
	SendMessage(ctx context.Context, msg services.TextMessage) error
}

// ArchiveEvents returns a handler that writes every event to the archive
func ArchiveEvents(recorder EventRecorder) webhooks.Handler {
	return func(ctx context.Context, ev *webhooks.Event) error {
		doc := ToArchivedEvent(ev)
		return recorder.Record(ctx, &doc)
	}
}

// ToArchivedEvent converts a dispatched event to its archive document
func ToArchivedEvent(ev *webhooks.Event) models.ArchivedEvent {
	return models.ArchivedEvent{
		DeliveryID:  ev.DeliveryID,
		Category:    string(ev.Category),
		PageID:      ev.PageID,
		SenderID:    ev.SenderID,
		RecipientID: ev.Messaging.Recipient.ID,
		SentAt:      time.UnixMilli(ev.Messaging.Timestamp),
		Raw:         string(ev.Messaging.Raw()),
		ReceivedAt:  time.Now(),
	}
}

// BroadcastEvents returns a handler that forwards every event to the monitor
func BroadcastEvents(b Broadcaster) webhooks.Handler {
	return func(_ context.Context, ev *webhooks.Event) error {
		b.Broadcast(services.BroadcastMessage{
			PageID: ev.PageID,
			Type:   string(ev.Category),
			Data: map[string]any{
				"delivery_id": ev.DeliveryID,
				"sender_id":   ev.SenderID,
				"text":        ev.Text,
				"payload":     ev.Payload,
				"referral":    ev.Referral,
				"event":       ev.Messaging,
			},
		})
		return nil
	}
}

// EchoReply returns a message handler that sends the user's text back to them.
// Echoes of the page's own messages and attachment-only messages are ignored.
func EchoReply(sender MessageSender) webhooks.MessageFunc {
	return func(ctx context.Context, senderID, text string, _ any, ev webhooks.MessagingEvent) error {
		if ev.Message != nil && ev.Message.IsEcho {
			return nil
		}
		if text == "" {
			slog.Debug("Nothing to echo", "senderID", senderID)
			return nil
		}
		return sender.SendMessage(ctx, services.TextMessage{UserID: senderID, Text: text})
	}
}
