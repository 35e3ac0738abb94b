package services

import (
	"context"
	"fmt"
	"net/http"
)

// Sender performs a single Graph API call. GraphClient is the production implementation.
type Sender interface {
	Send(ctx context.Context, body any, method string, endpoint Endpoint) error
}

// Messenger turns send intents into Graph API calls. It holds no mutable state
// and is safe for concurrent use.
type Messenger struct {
	sender Sender
}

// NewMessenger creates a Messenger on top of sender
func NewMessenger(sender Sender) *Messenger {
	return &Messenger{sender: sender}
}

// SendMessage sends a text message, with optional quick replies or buttons
func (m *Messenger) SendMessage(ctx context.Context, msg TextMessage) error {
	body, err := BuildTextMessage(msg)
	if err != nil {
		return fmt.Errorf("building text message: %w", err)
	}
	return m.sender.Send(ctx, body, http.MethodPost, EndpointDefault)
}

// SendImage sends an image attachment
func (m *Messenger) SendImage(ctx context.Context, msg ImageMessage) error {
	body, err := BuildImageMessage(msg)
	if err != nil {
		return fmt.Errorf("building image message: %w", err)
	}
	return m.sender.Send(ctx, body, http.MethodPost, EndpointDefault)
}

// SendShareMessage sends a generic template card carrying a share button
func (m *Messenger) SendShareMessage(ctx context.Context, msg ShareMessage) error {
	return m.sender.Send(ctx, BuildShareMessage(msg), http.MethodPost, EndpointDefault)
}

// AddGetStartedPage sets the Get Started payload on the page's Messenger profile.
// The profile endpoint takes this write as a GET.
func (m *Messenger) AddGetStartedPage(ctx context.Context, payload any) error {
	cmd, err := BuildGetStartedCommand(payload)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, cmd, http.MethodGet, EndpointMessengerProfile)
}

// RemoveGetStartedPage removes the Get Started button from the page's Messenger profile
func (m *Messenger) RemoveGetStartedPage(ctx context.Context) error {
	return m.sender.Send(ctx, BuildRemoveGetStartedCommand(), http.MethodDelete, EndpointMessengerProfile)
}
