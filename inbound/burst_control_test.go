package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-interactions/core"
)

func TestBurstController_NoneModeAllowsEverything(t *testing.T) {
	controller := NewBurstController(BurstOptions{Mode: BurstModeNone})
	req := core.InboundRequest{Metadata: map[string]any{"channel_id": "chan_1"}}

	for i := 0; i < 3; i++ {
		decision, err := controller.Allow(context.Background(), req)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !decision.Allow {
			t.Fatalf("expected none mode to allow request %d", i)
		}
	}
}

func TestBurstController_CoalesceSuppressesWithinWindow(t *testing.T) {
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeCoalesce,
		Window: 2 * time.Second,
		Now:    func() time.Time { return current },
	})
	req := core.InboundRequest{Metadata: map[string]any{"channel_id": "chan_1"}}

	decision, err := controller.Allow(context.Background(), req)
	if err != nil || !decision.Allow {
		t.Fatalf("expected first request to pass: allow=%v err=%v", decision.Allow, err)
	}

	current = current.Add(500 * time.Millisecond)
	decision, err = controller.Allow(context.Background(), req)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allow {
		t.Fatalf("expected repeat within window to be suppressed")
	}
	if decision.Metadata["coalesced"] != true {
		t.Fatalf("expected coalesced metadata, got %#v", decision.Metadata)
	}
	if decision.Metadata["burst_key"] != "chan_1" {
		t.Fatalf("expected burst key metadata, got %#v", decision.Metadata)
	}

	current = current.Add(3 * time.Second)
	decision, err = controller.Allow(context.Background(), req)
	if err != nil || !decision.Allow {
		t.Fatalf("expected request after window to pass: allow=%v err=%v", decision.Allow, err)
	}
}

func TestBurstController_DebounceMetadata(t *testing.T) {
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeDebounce,
		Window: time.Second,
		Now:    func() time.Time { return current },
	})
	req := core.InboundRequest{Headers: map[string]string{"X-Channel-ID": "chan_2"}}

	if decision, _ := controller.Allow(context.Background(), req); !decision.Allow {
		t.Fatalf("expected first request to pass")
	}

	current = current.Add(200 * time.Millisecond)
	decision, err := controller.Allow(context.Background(), req)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allow {
		t.Fatalf("expected debounced repeat to be suppressed")
	}
	if decision.Metadata["debounced"] != true {
		t.Fatalf("expected debounced metadata, got %#v", decision.Metadata)
	}
}

func TestBurstController_DistinctKeysDoNotInterfere(t *testing.T) {
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeCoalesce,
		Window: 2 * time.Second,
		Now:    func() time.Time { return current },
	})

	first := core.InboundRequest{Metadata: map[string]any{"channel_id": "chan_a"}}
	second := core.InboundRequest{Metadata: map[string]any{"channel_id": "chan_b"}}

	if decision, _ := controller.Allow(context.Background(), first); !decision.Allow {
		t.Fatalf("expected chan_a to pass")
	}
	current = current.Add(100 * time.Millisecond)
	if decision, _ := controller.Allow(context.Background(), second); !decision.Allow {
		t.Fatalf("expected chan_b to pass despite chan_a burst window")
	}
}

func TestBurstController_RequestsWithoutKeyAlwaysPass(t *testing.T) {
	controller := NewBurstController(BurstOptions{Mode: BurstModeCoalesce, Window: time.Minute})
	req := core.InboundRequest{Body: []byte(`{"id":"int_1","type":2}`)}

	for i := 0; i < 3; i++ {
		decision, err := controller.Allow(context.Background(), req)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !decision.Allow {
			t.Fatalf("expected keyless request %d to pass", i)
		}
	}
}

func TestDefaultBurstKeyExtractor(t *testing.T) {
	if key, ok := DefaultBurstKeyExtractor(core.InboundRequest{
		Metadata: map[string]any{"burst_key": "Custom-Key"},
	}); !ok || key != "custom-key" {
		t.Fatalf("expected lowered metadata key, got %q ok=%v", key, ok)
	}

	if key, ok := DefaultBurstKeyExtractor(core.InboundRequest{
		Headers: map[string]string{"x-message-id": "msg_9"},
	}); !ok || key != "msg_9" {
		t.Fatalf("expected header key, got %q ok=%v", key, ok)
	}

	if _, ok := DefaultBurstKeyExtractor(core.InboundRequest{}); ok {
		t.Fatalf("expected no key for empty request")
	}
}
