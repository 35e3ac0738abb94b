package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaslen/serverless-fb-messenger/models"
	"github.com/tmaslen/serverless-fb-messenger/services"
	"github.com/tmaslen/serverless-fb-messenger/webhooks"
)

type fakeSender struct {
	texts      []services.TextMessage
	images     []services.ImageMessage
	shares     []services.ShareMessage
	getStarted []any
	removed    int
	err        error
}

func (f *fakeSender) SendMessage(_ context.Context, msg services.TextMessage) error {
	f.texts = append(f.texts, msg)
	return f.err
}

func (f *fakeSender) SendImage(_ context.Context, msg services.ImageMessage) error {
	f.images = append(f.images, msg)
	return f.err
}

func (f *fakeSender) SendShareMessage(_ context.Context, msg services.ShareMessage) error {
	f.shares = append(f.shares, msg)
	return f.err
}

func (f *fakeSender) AddGetStartedPage(_ context.Context, payload any) error {
	f.getStarted = append(f.getStarted, payload)
	return f.err
}

func (f *fakeSender) RemoveGetStartedPage(context.Context) error {
	f.removed++
	return f.err
}

type fakeArchive struct {
	recorded []models.ArchivedEvent
	byUser   map[string][]models.ArchivedEvent
}

func (f *fakeArchive) Record(_ context.Context, event *models.ArchivedEvent) error {
	f.recorded = append(f.recorded, *event)
	return nil
}

func (f *fakeArchive) RecentBySender(_ context.Context, senderID string, limit int64) ([]models.ArchivedEvent, error) {
	events := f.byUser[senderID]
	if int64(len(events)) > limit {
		events = events[:limit]
	}
	return events, nil
}

type fakeBroadcaster struct {
	messages []services.BroadcastMessage
}

func (f *fakeBroadcaster) Broadcast(message services.BroadcastMessage) {
	f.messages = append(f.messages, message)
}

const messageBatch = `{"object":"page","entry":[{"id":"PAGE_ID","messaging":[
	{"sender":{"id":"USER_ID"},"recipient":{"id":"PAGE_ID"},"timestamp":1458692752478,"message":{"mid":"m1","text":"hello"}}
]}]}`

func dispatch(t *testing.T, d *webhooks.Dispatcher, body string) {
	t.Helper()
	var env webhooks.WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	_, err := d.Dispatch(context.Background(), &env)
	require.NoError(t, err)
}

func TestArchiveEvents(t *testing.T) {
	archive := &fakeArchive{}
	d := webhooks.NewDispatcher()
	d.OnAll(ArchiveEvents(archive))

	dispatch(t, d, messageBatch)

	require.Len(t, archive.recorded, 1)
	doc := archive.recorded[0]
	assert.Equal(t, "message", doc.Category)
	assert.Equal(t, "PAGE_ID", doc.PageID)
	assert.Equal(t, "USER_ID", doc.SenderID)
	assert.Equal(t, "PAGE_ID", doc.RecipientID)
	assert.Equal(t, time.UnixMilli(1458692752478), doc.SentAt)
	assert.NotEmpty(t, doc.DeliveryID)
	assert.JSONEq(t, `{"sender":{"id":"USER_ID"},"recipient":{"id":"PAGE_ID"},"timestamp":1458692752478,"message":{"mid":"m1","text":"hello"}}`, doc.Raw)
}

func TestBroadcastEvents(t *testing.T) {
	b := &fakeBroadcaster{}
	d := webhooks.NewDispatcher()
	d.OnAll(BroadcastEvents(b))

	dispatch(t, d, messageBatch)

	require.Len(t, b.messages, 1)
	assert.Equal(t, "message", b.messages[0].Type)
	assert.Equal(t, "PAGE_ID", b.messages[0].PageID)

	data, err := json.Marshal(b.messages[0].Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"hello"`)
	assert.Contains(t, string(data), `"mid":"m1"`)
}

func TestEchoReply(t *testing.T) {
	sender := &fakeSender{}
	d := webhooks.NewDispatcher()
	d.OnMessage(EchoReply(sender))

	dispatch(t, d, messageBatch)
	dispatch(t, d, `{"object":"page","entry":[{"messaging":[
		{"sender":{"id":"PAGE_ID"},"recipient":{"id":"USER_ID"},"timestamp":1,"message":{"mid":"m2","text":"bot says","is_echo":true}},
		{"sender":{"id":"USER_ID"},"recipient":{"id":"PAGE_ID"},"timestamp":2,"message":{"mid":"m3","attachments":[{"type":"image","payload":{"url":"https://example.com/a.png"}}]}}
	]}]}`)

	assert.Equal(t, []services.TextMessage{{UserID: "USER_ID", Text: "hello"}}, sender.texts)
}

func newAdminApp(sender Sender, archive EventLister) *fiber.App {
	app := fiber.New()
	NewAdminHandler(sender, archive).Register(app.Group("/admin"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestAdminSendText(t *testing.T) {
	sender := &fakeSender{}
	app := newAdminApp(sender, nil)

	status, body := doJSON(t, app, http.MethodPost, "/admin/messages/text",
		`{"user_id":"42","text":"Hello","quick_replies":[{"text":"yes","payload":{"answer":"yes"}}]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"sent"}`, body)

	require.Len(t, sender.texts, 1)
	assert.Equal(t, "42", sender.texts[0].UserID)
	assert.Equal(t, map[string]any{"answer": "yes"}, sender.texts[0].QuickReplies[0].Payload)

	status, _ = doJSON(t, app, http.MethodPost, "/admin/messages/text", `{"user_id":"42"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminSendImageAndShare(t *testing.T) {
	sender := &fakeSender{}
	app := newAdminApp(sender, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/admin/messages/image", `{"user_id":"42","url":"https://example.com/a.png"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/admin/messages/share",
		`{"user_id":"42","title":"Story","subtitle":"Good","image_url":"https://example.com/a.png","buttons":[{"type":"web_url","url":"https://example.com"}]}`)
	assert.Equal(t, http.StatusOK, status)

	require.Len(t, sender.images, 1)
	require.Len(t, sender.shares, 1)
	assert.Len(t, sender.shares[0].Buttons, 1)
}

func TestAdminGetStarted(t *testing.T) {
	sender := &fakeSender{}
	app := newAdminApp(sender, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/admin/get-started", `{"payload":"GET_STARTED"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/admin/get-started", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodDelete, "/admin/get-started", ``)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, []any{"GET_STARTED"}, sender.getStarted)
	assert.Equal(t, 1, sender.removed)
}

func TestAdminRemoteErrorPassthrough(t *testing.T) {
	sender := &fakeSender{err: &services.RemoteAPIError{
		StatusCode: 400,
		Message:    "No matching user found",
		Raw:        json.RawMessage(`{"message":"No matching user found","code":100}`),
	}}
	app := newAdminApp(sender, nil)

	status, body := doJSON(t, app, http.MethodPost, "/admin/messages/text", `{"user_id":"42","text":"Hello"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.JSONEq(t, `{"error":{"message":"No matching user found","code":100}}`, body)

	sender.err = errors.New("dial tcp: connection refused")
	status, body = doJSON(t, app, http.MethodPost, "/admin/messages/text", `{"user_id":"42","text":"Hello"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "connection refused")
}

func TestAdminSenderEvents(t *testing.T) {
	archive := &fakeArchive{byUser: map[string][]models.ArchivedEvent{
		"42": {{Category: "message", SenderID: "42"}, {Category: "messageRead", SenderID: "42"}},
	}}
	app := newAdminApp(&fakeSender{}, archive)

	status, body := doJSON(t, app, http.MethodGet, "/admin/events/42?limit=1", ``)
	assert.Equal(t, http.StatusOK, status)

	var resp struct {
		SenderID string                 `json:"sender_id"`
		Count    int                    `json:"count"`
		Events   []models.ArchivedEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "42", resp.SenderID)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "message", resp.Events[0].Category)

	status, _ = doJSON(t, app, http.MethodGet, "/admin/events/42?limit=0", ``)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminEventsRouteNeedsArchive(t *testing.T) {
	app := newAdminApp(&fakeSender{}, nil)
	status, _ := doJSON(t, app, http.MethodGet, "/admin/events/42", ``)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMonitorCommands(t *testing.T) {
	sender := &fakeSender{}
	h := NewMonitorHandler(services.NewMonitor(), sender)
	defer h.monitor.Close()

	var reply map[string]any
	require.NoError(t, json.Unmarshal(h.HandleCommand(context.Background(), WebSocketMessage{Type: "ping"}), &reply))
	assert.Equal(t, "pong", reply["type"])

	require.NoError(t, json.Unmarshal(h.HandleCommand(context.Background(),
		WebSocketMessage{Type: "send_message", UserID: "42", Message: "hi from the dashboard"}), &reply))
	assert.Equal(t, "message_sent", reply["type"])
	assert.Equal(t, []services.TextMessage{{UserID: "42", Text: "hi from the dashboard"}}, sender.texts)

	require.NoError(t, json.Unmarshal(h.HandleCommand(context.Background(),
		WebSocketMessage{Type: "send_message"}), &reply))
	assert.Equal(t, "error", reply["type"])

	require.NoError(t, json.Unmarshal(h.HandleCommand(context.Background(), WebSocketMessage{Type: "dance"}), &reply))
	assert.Equal(t, "error", reply["type"])
}
