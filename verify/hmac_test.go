package verify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/goliatone/go-interactions/core"
)

func hmacSignature(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

func TestHeaderHMACVerifier_HexAndBase64(t *testing.T) {
	body := []byte(`{"id":"int-1","type":2}`)
	signature := hmacSignature("hmac-secret", body)

	hexVerifier := HeaderHMACVerifier{
		Header: "X-Hub-Signature-256",
		Prefix: "sha256=",
		Secret: "hmac-secret",
	}
	if err := hexVerifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Hub-Signature-256": "sha256=" + hex.EncodeToString(signature)},
		Body:    body,
	}); err != nil {
		t.Fatalf("expected hex signature to verify: %v", err)
	}

	base64Verifier := HeaderHMACVerifier{
		Header:   "X-Signature",
		Secret:   "hmac-secret",
		Encoding: "base64",
	}
	if err := base64Verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Signature": base64.StdEncoding.EncodeToString(signature)},
		Body:    body,
	}); err != nil {
		t.Fatalf("expected base64 signature to verify: %v", err)
	}
}

func TestHeaderHMACVerifier_RejectsTamperedBody(t *testing.T) {
	body := []byte(`{"id":"int-1","type":2}`)
	signature := hmacSignature("hmac-secret", body)

	verifier := HeaderHMACVerifier{
		Header: "X-Hub-Signature-256",
		Secret: "hmac-secret",
	}
	err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Hub-Signature-256": hex.EncodeToString(signature)},
		Body:    []byte(`{"id":"int-1","type":3}`),
	})
	if err == nil {
		t.Fatalf("expected tampered body to be rejected")
	}
}

func TestHeaderHMACVerifier_FailsClosedOnMissingMaterial(t *testing.T) {
	verifier := HeaderHMACVerifier{Header: "X-Hub-Signature-256", Secret: "hmac-secret"}

	if err := verifier.Verify(context.Background(), core.InboundRequest{Body: []byte(`{}`)}); err == nil {
		t.Fatalf("expected missing signature header to be rejected")
	}

	verifier.Secret = ""
	if err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Hub-Signature-256": "deadbeef"},
		Body:    []byte(`{}`),
	}); err == nil {
		t.Fatalf("expected missing secret to be rejected")
	}
}

func TestHeaderTokenVerifier(t *testing.T) {
	verifier := HeaderTokenVerifier{Header: "X-Verify-Token", Token: "expected-token"}

	if err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"x-verify-token": "expected-token"},
	}); err != nil {
		t.Fatalf("expected matching token to verify: %v", err)
	}

	if err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Verify-Token": "wrong"},
	}); err == nil {
		t.Fatalf("expected mismatched token to be rejected")
	}

	if err := verifier.Verify(context.Background(), core.InboundRequest{}); err == nil {
		t.Fatalf("expected missing header to be rejected")
	}
}
