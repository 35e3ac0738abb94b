package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGraphAPIURL is the Graph API host every call is sent to
const DefaultGraphAPIURL = "https://graph.facebook.com"

// Endpoint selects which Graph API path a call is sent to
type Endpoint string

const (
	EndpointDefault          Endpoint = "default"
	EndpointThreadSetting    Endpoint = "threadSetting"
	EndpointMessengerProfile Endpoint = "messengerProfile"
)

var endpointPaths = map[Endpoint]string{
	EndpointDefault:          "/v2.6/me/messages",
	EndpointThreadSetting:    "/v2.6/me/thread_settings",
	EndpointMessengerProfile: "/v2.6/me/messenger_profile",
}

// GraphClient performs one Graph API round trip per call
type GraphClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// GraphOption customises a GraphClient
type GraphOption func(*GraphClient)

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(baseURL string) GraphOption {
	return func(c *GraphClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) GraphOption {
	return func(c *GraphClient) {
		c.httpClient = httpClient
	}
}

// NewGraphClient creates a client that authenticates every call with the page access token
func NewGraphClient(pageAccessToken string, opts ...GraphOption) *GraphClient {
	c := &GraphClient{
		baseURL:     DefaultGraphAPIURL,
		accessToken: pageAccessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendResponse struct {
	MessageID   string          `json:"message_id"`
	RecipientID string          `json:"recipient_id"`
	Error       json.RawMessage `json:"error"`
}

// Send JSON encodes body and sends it to the endpoint with the given method.
// A 200 response succeeds; anything else is returned as one of the typed
// errors in errors.go.
func (c *GraphClient) Send(ctx context.Context, body any, method string, endpoint Endpoint) error {
	path, ok := endpointPaths[endpoint]
	if !ok {
		return fmt.Errorf("unknown endpoint %q", endpoint)
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", method)
	}

	jsonData, err := marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	q := url.Values{}
	q.Set("access_token", c.accessToken)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Error calling Facebook API", "endpoint", endpoint, "error", err)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Error reading Facebook API response", "endpoint", endpoint, "error", err)
		return &TransportError{Err: err}
	}

	var result sendResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Error("Facebook API returned malformed body",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return &MalformedResponseError{StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		slog.Info("Successfully sent message",
			"messageID", result.MessageID,
			"recipientID", result.RecipientID,
			"endpoint", endpoint,
		)
		return nil

	case resp.StatusCode == http.StatusBadRequest && hasValue(result.Error):
		apiErr := &RemoteAPIError{StatusCode: resp.StatusCode, Raw: result.Error}
		// Raw is authoritative; the decoded fields are a convenience.
		_ = json.Unmarshal(result.Error, apiErr)
		slog.Error("Facebook API rejected request",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"error", string(result.Error),
		)
		return apiErr

	default:
		slog.Error("Unexpected Facebook API response",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return &UnexpectedStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
