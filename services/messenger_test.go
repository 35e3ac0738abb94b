package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentCall struct {
	body     string
	method   string
	endpoint Endpoint
}

type fakeSender struct {
	calls []sentCall
	err   error
	t     *testing.T
}

func (f *fakeSender) Send(_ context.Context, body any, method string, endpoint Endpoint) error {
	f.calls = append(f.calls, sentCall{body: encode(f.t, body), method: method, endpoint: endpoint})
	return f.err
}

func TestMessengerSendOperations(t *testing.T) {
	sender := &fakeSender{t: t}
	m := NewMessenger(sender)
	ctx := context.Background()

	require.NoError(t, m.SendMessage(ctx, TextMessage{UserID: "1", Text: "Hello"}))
	require.NoError(t, m.SendImage(ctx, ImageMessage{UserID: "1", URL: storyImage}))
	require.NoError(t, m.SendShareMessage(ctx, ShareMessage{UserID: "1", Title: "t", Subtitle: "s", ImageURL: storyImage}))

	require.Len(t, sender.calls, 3)
	for _, call := range sender.calls {
		assert.Equal(t, http.MethodPost, call.method)
		assert.Equal(t, EndpointDefault, call.endpoint)
	}
	assert.JSONEq(t, `{"recipient":{"id":"1"},"message":{"text":"Hello"}}`, sender.calls[0].body)
}

func TestMessengerProfileCommands(t *testing.T) {
	sender := &fakeSender{t: t}
	m := NewMessenger(sender)
	ctx := context.Background()

	require.NoError(t, m.AddGetStartedPage(ctx, map[string]any{"start": true}))
	require.NoError(t, m.RemoveGetStartedPage(ctx))

	require.Len(t, sender.calls, 2)

	assert.Equal(t, http.MethodGet, sender.calls[0].method)
	assert.Equal(t, EndpointMessengerProfile, sender.calls[0].endpoint)
	assert.JSONEq(t, `{"get_started":{"payload":"{\"start\":true}"}}`, sender.calls[0].body)

	assert.Equal(t, http.MethodDelete, sender.calls[1].method)
	assert.Equal(t, EndpointMessengerProfile, sender.calls[1].endpoint)
	assert.JSONEq(t, `{"fields":["get_started"]}`, sender.calls[1].body)
}

func TestMessengerPropagatesErrors(t *testing.T) {
	remote := &RemoteAPIError{StatusCode: 400, Message: "bad recipient"}
	m := NewMessenger(&fakeSender{t: t, err: remote})

	err := m.SendMessage(context.Background(), TextMessage{UserID: "1", Text: "Hello"})

	var apiErr *RemoteAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad recipient", apiErr.Message)
}
