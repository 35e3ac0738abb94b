package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tmaslen/serverless-fb-messenger/models"
)

// Reply is a quick reply or postback button as supplied by the application.
// Payload is JSON encoded before it is sent, even when it is already a string.
type Reply struct {
	Text    string `json:"text"`
	Payload any    `json:"payload"`
}

// TextMessage is a plain text send, optionally with quick replies or buttons.
// When Buttons is set the whole message becomes a button template and any
// quick replies are dropped.
type TextMessage struct {
	UserID       string  `json:"user_id"`
	Text         string  `json:"text"`
	QuickReplies []Reply `json:"quick_replies,omitempty"`
	Buttons      []Reply `json:"buttons,omitempty"`
}

// ImageMessage sends an image by URL
type ImageMessage struct {
	UserID       string  `json:"user_id"`
	URL          string  `json:"url"`
	QuickReplies []Reply `json:"quick_replies,omitempty"`
}

// ShareMessage sends a generic template card with a share button. Extra
// buttons are appended verbatim after the share button.
type ShareMessage struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
	Buttons  []any  `json:"buttons,omitempty"`
}

const getStartedField = "get_started"

// BuildTextMessage builds the Send API body for a text message
func BuildTextMessage(msg TextMessage) (*models.OutboundMessage, error) {
	out := &models.OutboundMessage{
		Recipient: models.Recipient{ID: msg.UserID},
		Message:   models.MessageContent{Text: &msg.Text},
	}

	if len(msg.QuickReplies) > 0 {
		quickReplies, err := buildQuickReplies(msg.QuickReplies)
		if err != nil {
			return nil, err
		}
		out.Message.QuickReplies = quickReplies
	}

	if len(msg.Buttons) > 0 {
		buttons := make([]models.Button, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			payload, err := stringify(b.Payload)
			if err != nil {
				return nil, fmt.Errorf("encoding button %q payload: %w", b.Text, err)
			}
			buttons = append(buttons, models.Button{
				Type:    "postback",
				Title:   b.Text,
				Payload: payload,
			})
		}

		// Replaces the message, quick replies included.
		out.Message = models.MessageContent{
			Attachment: &models.Attachment{
				Type: "template",
				Payload: models.AttachmentPayload{
					TemplateType: "button",
					Text:         &msg.Text,
					Buttons:      buttons,
				},
			},
		}
	}

	return out, nil
}

// BuildImageMessage builds the Send API body for an image attachment
func BuildImageMessage(msg ImageMessage) (*models.OutboundMessage, error) {
	out := &models.OutboundMessage{
		Recipient: models.Recipient{ID: msg.UserID},
		Message: models.MessageContent{
			Attachment: &models.Attachment{
				Type:    "image",
				Payload: models.AttachmentPayload{URL: msg.URL},
			},
		},
	}

	if len(msg.QuickReplies) > 0 {
		quickReplies, err := buildQuickReplies(msg.QuickReplies)
		if err != nil {
			return nil, err
		}
		out.Message.QuickReplies = quickReplies
	}

	return out, nil
}

// BuildShareMessage builds the Send API body for a shareable generic template
func BuildShareMessage(msg ShareMessage) *models.OutboundMessage {
	buttons := make([]any, 0, len(msg.Buttons)+1)
	buttons = append(buttons, models.Button{Type: "element_share"})
	buttons = append(buttons, msg.Buttons...)

	return &models.OutboundMessage{
		Recipient: models.Recipient{ID: msg.UserID},
		Message: models.MessageContent{
			Attachment: &models.Attachment{
				Type: "template",
				Payload: models.AttachmentPayload{
					TemplateType: "generic",
					Elements: []models.Element{{
						Title:    msg.Title,
						Subtitle: msg.Subtitle,
						ImageURL: msg.ImageURL,
						Buttons:  buttons,
					}},
				},
			},
		},
	}
}

// BuildGetStartedCommand builds the profile command that sets the Get Started payload
func BuildGetStartedCommand(payload any) (*models.GetStartedCommand, error) {
	encoded, err := stringify(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding get started payload: %w", err)
	}
	return &models.GetStartedCommand{
		GetStarted: models.GetStarted{Payload: encoded},
	}, nil
}

// BuildRemoveGetStartedCommand builds the profile command that removes the Get Started button
func BuildRemoveGetStartedCommand() *models.RemoveFieldsCommand {
	return &models.RemoveFieldsCommand{Fields: []string{getStartedField}}
}

func buildQuickReplies(replies []Reply) ([]models.QuickReply, error) {
	out := make([]models.QuickReply, 0, len(replies))
	for _, r := range replies {
		payload, err := stringify(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("encoding quick reply %q payload: %w", r.Text, err)
		}
		out = append(out, models.QuickReply{
			ContentType: "text",
			Title:       r.Text,
			Payload:     payload,
		})
	}
	return out, nil
}

// stringify JSON encodes v without HTML escaping, so "<" and "&" reach the
// platform as written.
func stringify(v any) (string, error) {
	data, err := marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
