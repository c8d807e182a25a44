package gocommand

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	interactionscommand "github.com/goliatone/go-interactions/command"
	"github.com/goliatone/go-interactions/core"
)

type okMessage struct{}

func (okMessage) Type() string { return "interactions.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "interactions.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "interactions.command.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "interactions.command.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("interactions.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

func TestObserverPublishesReceivedInteractions(t *testing.T) {
	var received interactionscommand.InteractionReceivedMessage
	handler := command.CommandFunc[interactionscommand.InteractionReceivedMessage](
		func(_ context.Context, msg interactionscommand.InteractionReceivedMessage) error {
			received = msg
			return nil
		},
	)
	subscription := SubscribeCommand(handler)
	defer subscription.Unsubscribe()

	observer := NewObserver(nil)
	interaction := core.NewInteraction("int-1", core.KindCommand, json.RawMessage(`{"id":"int-1","type":2}`))
	interaction.Token = "tok-1"
	observer.OnInteraction(context.Background(), interaction)

	if received.InteractionID != "int-1" {
		t.Fatalf("expected interaction id to reach subscriber, got %q", received.InteractionID)
	}
	if received.Kind != "command" {
		t.Fatalf("expected kind mapping, got %q", received.Kind)
	}
	if received.Token != "tok-1" {
		t.Fatalf("expected token mapping, got %q", received.Token)
	}
	if string(received.Payload) != `{"id":"int-1","type":2}` {
		t.Fatalf("expected raw payload passthrough, got %s", received.Payload)
	}
}
