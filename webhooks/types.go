package webhooks

import "encoding/json"

// WebhookEvent represents the main webhook payload from Facebook
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a page entry in the webhook
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
}

// MessagingEvent is one atomic notification. Exactly one of the six
// discriminator fields (Optin through AccountLinking) is expected to be set.
type MessagingEvent struct {
	Sender    User  `json:"sender"`
	Recipient User  `json:"recipient"`
	Timestamp int64 `json:"timestamp"`

	Optin          *Optin          `json:"optin,omitempty"`
	Message        *Message        `json:"message,omitempty"`
	Delivery       *Delivery       `json:"delivery,omitempty"`
	Postback       *Postback       `json:"postback,omitempty"`
	Read           *Read           `json:"read,omitempty"`
	AccountLinking *AccountLinking `json:"account_linking,omitempty"`

	raw       json.RawMessage
	decodeErr error
}

// UnmarshalJSON decodes the event and keeps the original bytes so handlers
// can see fields this package does not model. An event that does not match
// the model never fails the surrounding envelope: its bytes are kept and the
// error is reported by DecodeErr, so the rest of the batch still decodes.
func (e *MessagingEvent) UnmarshalJSON(data []byte) error {
	type plain MessagingEvent
	var decoded plain
	raw := append(json.RawMessage(nil), data...)
	if err := json.Unmarshal(data, &decoded); err != nil {
		*e = MessagingEvent{raw: raw, decodeErr: err}
		return nil
	}
	*e = MessagingEvent(decoded)
	e.raw = raw
	return nil
}

// DecodeErr is the error hit while decoding the event, nil for a well formed one.
// Only the raw bytes are available when it is set.
func (e MessagingEvent) DecodeErr() error {
	return e.decodeErr
}

// MarshalJSON returns the event exactly as delivered. Events built in code
// rather than decoded are encoded from their fields.
func (e MessagingEvent) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	type plain MessagingEvent
	return json.Marshal(plain(e))
}

// Raw is the event as JSON, see MarshalJSON.
func (e MessagingEvent) Raw() json.RawMessage {
	data, err := e.MarshalJSON()
	if err != nil {
		return nil
	}
	return data
}

// User represents a Facebook user or page
type User struct {
	ID string `json:"id"`
}

// Optin is sent when a user authenticates through the Send to Messenger plugin
type Optin struct {
	Ref     string `json:"ref,omitempty"`
	UserRef string `json:"user_ref,omitempty"`
}

// Message represents a message
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QuickReply represents a quick reply
type QuickReply struct {
	Payload string `json:"payload"`
}

// Attachment represents a message attachment
type Attachment struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Payload represents attachment payload
type Payload struct {
	URL string `json:"url"`
}

// Delivery confirms that messages were delivered
type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq,omitempty"`
}

// Postback is sent when a postback button, Get Started or persistent menu item is tapped
type Postback struct {
	Title    string    `json:"title,omitempty"`
	Payload  string    `json:"payload"`
	Referral *Referral `json:"referral,omitempty"`
}

// Referral describes how the user entered the conversation
type Referral struct {
	Ref    string `json:"ref,omitempty"`
	Source string `json:"source,omitempty"` // e.g. "SHORTLINK"
	Type   string `json:"type,omitempty"`   // e.g. "OPEN_THREAD"
}

// Read reports that all messages up to the watermark were read
type Read struct {
	Watermark int64 `json:"watermark"`
	Seq       int64 `json:"seq,omitempty"`
}

// AccountLinking is sent when a user links or unlinks their account
type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}
