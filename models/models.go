package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recipient identifies the Messenger user a message is addressed to
type Recipient struct {
	ID string `json:"id"`
}

// OutboundMessage is the body posted to the Send API
type OutboundMessage struct {
	Recipient Recipient      `json:"recipient"`
	Message   MessageContent `json:"message"`
}

// MessageContent holds either plain text or an attachment, plus optional quick replies
type MessageContent struct {
	Text         *string      `json:"text,omitempty"` // nil for attachments; set, even to "", for text sends
	Attachment   *Attachment  `json:"attachment,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

// QuickReply is a tappable suggestion shown under a message
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment represents an image or template attachment
type Attachment struct {
	Type    string            `json:"type"` // "image" or "template"
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload covers the image, button template and generic template shapes
type AttachmentPayload struct {
	URL          string    `json:"url,omitempty"`
	TemplateType string    `json:"template_type,omitempty"` // "button" or "generic"
	Text         *string   `json:"text,omitempty"` // button template only
	Buttons      []Button  `json:"buttons,omitempty"`
	Elements     []Element `json:"elements,omitempty"`
}

// Button is a postback or share button
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Element is one card of a generic template. Buttons after the first are
// caller supplied and passed through untouched.
type Element struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
	Buttons  []any  `json:"buttons"`
}

// GetStartedCommand sets the payload delivered when a user taps "Get Started"
type GetStartedCommand struct {
	GetStarted GetStarted `json:"get_started"`
}

type GetStarted struct {
	Payload string `json:"payload"`
}

// RemoveFieldsCommand deletes Messenger profile fields
type RemoveFieldsCommand struct {
	Fields []string `json:"fields"`
}

// ArchivedEvent is an inbound messaging event as stored in the event archive
type ArchivedEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DeliveryID  string             `bson:"delivery_id" json:"delivery_id"` // Groups events that arrived in one webhook call
	Category    string             `bson:"category" json:"category"`
	PageID      string             `bson:"page_id,omitempty" json:"page_id,omitempty"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	SentAt      time.Time          `bson:"sent_at" json:"sent_at"` // Platform timestamp of the event
	Raw         string             `bson:"raw" json:"raw"`
	ReceivedAt  time.Time          `bson:"received_at" json:"received_at"`
}
