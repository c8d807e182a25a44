package core

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestInteraction_RespondTransitionsOnce(t *testing.T) {
	interaction := NewInteraction("int-1", KindCommand, json.RawMessage(`{"type":2,"id":"int-1"}`))
	if interaction.State() != StatePending {
		t.Fatalf("expected pending state, got %s", interaction.State())
	}

	first := json.RawMessage(`{"type":4,"data":{"content":"hello"}}`)
	if err := interaction.Respond(first); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if interaction.State() != StateResponded {
		t.Fatalf("expected responded state, got %s", interaction.State())
	}

	err := interaction.Respond(json.RawMessage(`{"type":4,"data":{"content":"second"}}`))
	if err == nil {
		t.Fatalf("expected double response rejection")
	}
	if !errors.Is(err, ErrDoubleResponse) {
		t.Fatalf("expected ErrDoubleResponse, got %v", err)
	}

	payload := <-interaction.Response()
	if string(payload) != string(first) {
		t.Fatalf("expected first payload to win, got %s", payload)
	}
}

func TestInteraction_ExpireRejectsLateResolve(t *testing.T) {
	interaction := NewInteraction("int-2", KindCommand, nil)
	if !interaction.Expire() {
		t.Fatalf("expected expire to win from pending")
	}
	if interaction.State() != StateTimedOut {
		t.Fatalf("expected timed out state, got %s", interaction.State())
	}
	if interaction.Expire() {
		t.Fatalf("expected second expire to lose")
	}
	if err := interaction.Respond(json.RawMessage(`{"type":4}`)); err == nil {
		t.Fatalf("expected resolve after expire to be rejected")
	}
}

func TestInteraction_ConcurrentResolveExpireSingleWinner(t *testing.T) {
	for i := 0; i < 200; i++ {
		interaction := NewInteraction("int-race", KindComponent, nil)
		var wg sync.WaitGroup
		var respondErr error
		var expired bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			respondErr = interaction.Respond(json.RawMessage(`{"type":6}`))
		}()
		go func() {
			defer wg.Done()
			expired = interaction.Expire()
		}()
		wg.Wait()

		if (respondErr == nil) == expired {
			t.Fatalf("expected exactly one winner, respondErr=%v expired=%v", respondErr, expired)
		}
		if respondErr == nil {
			select {
			case <-interaction.Response():
			default:
				t.Fatalf("expected response payload after winning resolve")
			}
		}
	}
}

func TestDeferredAck_KindPolicy(t *testing.T) {
	if _, ok := DeferredAck(KindAutocomplete); ok {
		t.Fatalf("autocomplete must never defer")
	}
	if _, ok := DeferredAck(KindPing); ok {
		t.Fatalf("ping must never defer")
	}

	ack, ok := DeferredAck(KindCommand)
	if !ok {
		t.Fatalf("expected command deferral")
	}
	assertResponseType(t, ack, ResponseDeferredChannelMessage)

	ack, ok = DeferredAck(KindComponent)
	if !ok {
		t.Fatalf("expected component deferral")
	}
	assertResponseType(t, ack, ResponseDeferredUpdateMessage)

	ack, ok = DeferredAck(KindModalSubmit)
	if !ok {
		t.Fatalf("expected modal deferral")
	}
	assertResponseType(t, ack, ResponseDeferredChannelMessage)
}

func TestPongResponse_Shape(t *testing.T) {
	assertResponseType(t, PongResponse(), ResponsePong)
}

func assertResponseType(t *testing.T, payload json.RawMessage, want ResponseType) {
	t.Helper()
	var decoded struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if decoded.Type != int(want) {
		t.Fatalf("expected response type %d, got %d", want, decoded.Type)
	}
}
