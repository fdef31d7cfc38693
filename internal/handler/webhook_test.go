package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := `{"event_id":"ev_1","type":"payment.paid","order_reference":"ref-1"}`
	secret := "whsec_test"

	if !validSignature([]byte(body), sign(body, secret), secret) {
		t.Fatal("correct signature rejected")
	}
	if validSignature([]byte(body), sign(body, "other_secret"), secret) {
		t.Fatal("signature with wrong secret accepted")
	}
	if validSignature([]byte(body+" "), sign(body, secret), secret) {
		t.Fatal("signature over different body accepted")
	}
	if validSignature([]byte(body), "not-hex!!", secret) {
		t.Fatal("non-hex signature accepted")
	}
	if validSignature([]byte(body), "", secret) {
		t.Fatal("empty signature accepted")
	}
}

func TestParseWebhookPayload(t *testing.T) {
	p, err := parseWebhookPayload([]byte(`{
		"event_id": "ev_42",
		"type": "payment.paid",
		"order_reference": "8d5c2f2e",
		"provider_payment_id": "tr_999"
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.EventID != "ev_42" || p.Type != "payment.paid" || p.OrderReference != "8d5c2f2e" || p.ProviderID != "tr_999" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParseWebhookPayloadRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"garbage", `{not json`, "malformed"},
		{"missing event id", `{"type":"payment.paid","order_reference":"r"}`, "event_id"},
		{"missing type", `{"event_id":"e","order_reference":"r"}`, "type"},
		{"missing reference", `{"event_id":"e","type":"payment.refunded"}`, "order_reference"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseWebhookPayload([]byte(tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
