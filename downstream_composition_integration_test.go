package interactions_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	interactions "github.com/goliatone/go-interactions"
	"github.com/goliatone/go-interactions/adapters/gocommand"
	interactionscommand "github.com/goliatone/go-interactions/command"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/inbound"
	"github.com/goliatone/go-interactions/verify"
)

// Full downstream composition: Setup wires the runtime, the facade publishes
// its resolver handlers onto the bus, an application subscriber answers the
// received interaction, and the HTTP host adapter carries the exchange.
func TestDownstreamComposition_SignedRequestResolvedOverBus(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	cfg := interactions.DefaultConfig()
	cfg.PublicKey = hex.EncodeToString(pub)
	cfg.ReplyTimeoutMS = 1000

	runtime, err := interactions.New(cfg,
		interactions.WithDeliveryLedger(inbound.NewInMemoryDeliveryLedger()),
	)
	if err != nil {
		t.Fatalf("setup runtime: %v", err)
	}

	facade, err := runtime.Facade()
	if err != nil {
		t.Fatalf("facade: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := facade.RegisterCommands(adapter); err != nil {
		t.Fatalf("register facade commands: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	resolveSub := gocommand.SubscribeCommand(facade.Commands().Resolve)
	defer resolveSub.Unsubscribe()

	echoSub := gocommand.SubscribeCommand(command.CommandFunc[interactionscommand.InteractionReceivedMessage](
		func(ctx context.Context, msg interactionscommand.InteractionReceivedMessage) error {
			return gocommand.Dispatch(ctx, interactionscommand.ResolveInteractionMessage{
				InteractionID: msg.InteractionID,
				Response:      json.RawMessage(`{"type":4,"data":{"content":"composed"}}`),
			})
		},
	))
	defer echoSub.Unsubscribe()

	server := httptest.NewServer(runtime.Handler())
	defer server.Close()

	body := []byte(`{"id":"int-compose-1","token":"tok","type":2}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := ed25519.Sign(priv, append([]byte(timestamp), body...))

	request, err := http.NewRequest(http.MethodPost, server.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	request.Header.Set(verify.SignatureHeader, hex.EncodeToString(signature))
	request.Header.Set(verify.TimestampHeader, timestamp)

	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatalf("post interaction: %v", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", response.StatusCode, payload)
	}
	if string(payload) != `{"type":4,"data":{"content":"composed"}}` {
		t.Fatalf("expected bus-resolved payload, got %s", payload)
	}
}

func TestSetup_LoadsConfigThroughProvider(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	loader := staticLoader{values: map[string]any{
		"service_name":     "interactions",
		"public_key":       hex.EncodeToString(pub),
		"reply_timeout_ms": 2500,
	}}

	runtime, err := interactions.Setup(interactions.DefaultConfig(),
		interactions.WithConfigProvider(core.NewCfgxConfigProvider(loader)),
	)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if got := runtime.Config().ReplyTimeoutMS; got != 2500 {
		t.Fatalf("expected loaded reply timeout 2500, got %d", got)
	}
	if runtime.Dispatcher() == nil || runtime.Handler() == nil {
		t.Fatalf("expected wired dispatcher and handler")
	}
}

func TestSetup_ConfigFailureRoutedThroughErrorMapper(t *testing.T) {
	runtime, err := interactions.Setup(interactions.DefaultConfig(),
		interactions.WithConfigProvider(core.NewCfgxConfigProvider(failingLoader{})),
		interactions.WithErrorMapper(func(cause error) *goerrors.Error {
			return goerrors.Wrap(cause, goerrors.CategoryOperation, "configuration load failed").
				WithTextCode("CONFIG_LOAD_FAILED")
		}),
	)
	if err == nil {
		t.Fatalf("expected config load failure")
	}
	if runtime != nil {
		t.Fatalf("expected no runtime on failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != "CONFIG_LOAD_FAILED" {
		t.Fatalf("expected the configured mapper to shape the error, got %v", err)
	}
}

func TestNew_RequiresVerifierMaterial(t *testing.T) {
	cfg := interactions.DefaultConfig()
	if _, err := interactions.New(cfg); err == nil {
		t.Fatalf("expected missing public key to fail construction")
	}

	if _, err := interactions.New(cfg,
		interactions.WithVerifyFunc(func(context.Context, core.InboundRequest) error { return nil }),
	); err != nil {
		t.Fatalf("expected custom verifier to satisfy construction: %v", err)
	}
}

type failingLoader struct{}

func (failingLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, errors.New("backing store unavailable")
}

type staticLoader struct {
	values map[string]any
}

func (l staticLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}
