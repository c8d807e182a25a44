// Package verify authenticates inbound interaction callbacks against the
// platform's ed25519 signing scheme: signature over timestamp || raw body.
package verify

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-interactions/core"
)

const (
	SignatureHeader = "X-Signature-Ed25519"
	TimestampHeader = "X-Signature-Timestamp"
)

// Ed25519Verifier validates the platform signature headers over the raw
// request body. The hex key material is imported at most once; concurrent
// first calls are serialized by the one-shot latch, never by a lazy check.
type Ed25519Verifier struct {
	PublicKeyHex string

	importOnce sync.Once
	publicKey  ed25519.PublicKey
	importErr  error
}

func NewEd25519Verifier(publicKeyHex string) *Ed25519Verifier {
	return &Ed25519Verifier{PublicKeyHex: strings.TrimSpace(publicKeyHex)}
}

// Verify fails closed: missing headers, malformed hex, or a bad signature all
// yield an error and never a panic. Verification runs over the exact raw body
// bytes; any re-encoding before this point breaks authenticity.
func (v *Ed25519Verifier) Verify(_ context.Context, req core.InboundRequest) error {
	if v == nil {
		return fmt.Errorf("verify: verifier is nil")
	}
	publicKey, err := v.importKey()
	if err != nil {
		return err
	}

	signatureHex := strings.TrimSpace(headerValue(req.Headers, SignatureHeader))
	if signatureHex == "" {
		return fmt.Errorf("verify: %s signature header is required", SignatureHeader)
	}
	timestamp := strings.TrimSpace(headerValue(req.Headers, TimestampHeader))
	if timestamp == "" {
		return fmt.Errorf("verify: %s timestamp header is required", TimestampHeader)
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("verify: decode hex signature: %w", err)
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("verify: signature must be %d bytes, got %d", ed25519.SignatureSize, len(signature))
	}

	message := make([]byte, 0, len(timestamp)+len(req.Body))
	message = append(message, timestamp...)
	message = append(message, req.Body...)
	if !ed25519.Verify(publicKey, message, signature) {
		return fmt.Errorf("verify: signature verification failed")
	}
	return nil
}

func (v *Ed25519Verifier) importKey() (ed25519.PublicKey, error) {
	v.importOnce.Do(func() {
		keyHex := strings.TrimSpace(v.PublicKeyHex)
		if keyHex == "" {
			v.importErr = fmt.Errorf("verify: public key material is required")
			return
		}
		decoded, err := hex.DecodeString(keyHex)
		if err != nil {
			v.importErr = fmt.Errorf("verify: decode hex public key: %w", err)
			return
		}
		if len(decoded) != ed25519.PublicKeySize {
			v.importErr = fmt.Errorf("verify: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
			return
		}
		v.publicKey = ed25519.PublicKey(decoded)
	})
	return v.publicKey, v.importErr
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ core.Verifier = (*Ed25519Verifier)(nil)
