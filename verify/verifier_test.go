package verify

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/goliatone/go-interactions/core"
)

func signedRequest(t *testing.T, priv ed25519.PrivateKey, timestamp string, body []byte) core.InboundRequest {
	t.Helper()
	message := append([]byte(timestamp), body...)
	signature := ed25519.Sign(priv, message)
	return core.InboundRequest{
		Headers: map[string]string{
			SignatureHeader: hex.EncodeToString(signature),
			TimestampHeader: timestamp,
		},
		Body: body,
	}
}

func newKeyPair(t *testing.T) (*Ed25519Verifier, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	return NewEd25519Verifier(hex.EncodeToString(pub)), priv
}

func TestEd25519Verifier_AcceptsValidSignature(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected valid signature to verify: %v", err)
	}
}

func TestEd25519Verifier_RejectsTamperedBody(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	req.Body = []byte(`{"type":2}`)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected tampered body to fail verification")
	}
}

func TestEd25519Verifier_RejectsTamperedSignature(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	raw, err := hex.DecodeString(req.Headers[SignatureHeader])
	if err != nil {
		t.Fatalf("decode signature fixture: %v", err)
	}
	raw[0] ^= 0xff
	req.Headers[SignatureHeader] = hex.EncodeToString(raw)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected tampered signature to fail verification")
	}
}

func TestEd25519Verifier_RejectsTamperedTimestamp(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	req.Headers[TimestampHeader] = "1724500999"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected timestamp drift to fail verification")
	}
}

func TestEd25519Verifier_FailsClosedOnMissingHeaders(t *testing.T) {
	verifier, priv := newKeyPair(t)

	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	delete(req.Headers, SignatureHeader)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected missing signature header to fail closed")
	}

	req = signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	delete(req.Headers, TimestampHeader)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected missing timestamp header to fail closed")
	}

	if err := verifier.Verify(context.Background(), core.InboundRequest{}); err == nil {
		t.Fatalf("expected bare request to fail closed")
	}
}

func TestEd25519Verifier_HeadersCaseInsensitive(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	req.Headers = map[string]string{
		"x-signature-ed25519":   req.Headers[SignatureHeader],
		"X-SIGNATURE-TIMESTAMP": req.Headers[TimestampHeader],
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected case-insensitive header lookup: %v", err)
	}
}

func TestEd25519Verifier_RejectsBadKeyMaterial(t *testing.T) {
	if err := NewEd25519Verifier("not-hex").Verify(context.Background(), core.InboundRequest{}); err == nil {
		t.Fatalf("expected non-hex key to fail")
	}
	if err := NewEd25519Verifier("abcd").Verify(context.Background(), core.InboundRequest{}); err == nil {
		t.Fatalf("expected short key to fail")
	}
	if err := NewEd25519Verifier("").Verify(context.Background(), core.InboundRequest{}); err == nil {
		t.Fatalf("expected empty key to fail")
	}
}

func TestEd25519Verifier_RejectsMalformedSignatureHex(t *testing.T) {
	verifier, priv := newKeyPair(t)
	req := signedRequest(t, priv, "1724500000", []byte(`{"type":1}`))
	req.Headers[SignatureHeader] = "zz-not-hex"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected malformed signature hex to fail")
	}
	req.Headers[SignatureHeader] = "abcd"
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected truncated signature to fail")
	}
}
