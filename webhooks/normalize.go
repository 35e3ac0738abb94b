package webhooks

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// LooksLikeJSON reports whether a payload string should be decoded as a JSON
// object. Messenger delivers payloads as opaque strings; applications that
// want structured payloads encode an object, so a leading '{' is the marker.
func LooksLikeJSON(value string) bool {
	return strings.HasPrefix(value, "{")
}

// DecodePayload returns the decoded object when value looks like JSON and
// parses, and value unchanged otherwise.
func DecodePayload(value string) any {
	if !LooksLikeJSON(value) {
		return value
	}

	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		slog.Warn("Payload looks like JSON but does not parse, passing it through", "payload", value, "error", err)
		return value
	}
	return decoded
}

// quickReplyPayload is the decoded quick reply payload of a message, or "" when there is none.
func quickReplyPayload(m *Message) any {
	if m == nil || m.QuickReply == nil || m.QuickReply.Payload == "" {
		return ""
	}
	return DecodePayload(m.QuickReply.Payload)
}

// referralRef is the decoded referral ref of a postback, or nil when there is none.
func referralRef(p *Postback) any {
	if p == nil || p.Referral == nil || p.Referral.Ref == "" {
		return nil
	}
	return DecodePayload(p.Referral.Ref)
}
