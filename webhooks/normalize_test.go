package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"json object", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"nested object", `{"step":{"n":2,"tags":["x"]}}`, map[string]any{"step": map[string]any{"n": float64(2), "tags": []any{"x"}}}},
		{"plain string", "plain", "plain"},
		{"empty", "", ""},
		{"array is not sniffed", `[1,2]`, `[1,2]`},
		{"leading space is not sniffed", ` {"a":1}`, ` {"a":1}`},
		{"broken json passes through", `{not json`, `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodePayload(tt.input))
		})
	}
}

func TestQuickReplyPayloadDefaults(t *testing.T) {
	assert.Equal(t, "", quickReplyPayload(&Message{Text: "hi"}))
	assert.Equal(t, "", quickReplyPayload(&Message{QuickReply: &QuickReply{}}))
	assert.Equal(t, "YES", quickReplyPayload(&Message{QuickReply: &QuickReply{Payload: "YES"}}))
}

func TestReferralRefDefaults(t *testing.T) {
	assert.Nil(t, referralRef(&Postback{Payload: "x"}))
	assert.Nil(t, referralRef(&Postback{Referral: &Referral{Source: "SHORTLINK"}}))
	assert.Equal(t, map[string]any{"campaign": "spring"},
		referralRef(&Postback{Referral: &Referral{Ref: `{"campaign":"spring"}`}}))
}
