package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var (
	ErrDoubleResponse       = errors.New("core: interaction already finalized")
	ErrInteractionNotFound  = errors.New("core: interaction not found")
	ErrInvalidInteractionID = errors.New("core: interaction id is required")
)

// InteractionKind is the platform's tagged variant discriminant. The set is
// open: the platform can add kinds without notice, so unknown positive values
// parse successfully and are reported as unsupported at dispatch time.
type InteractionKind int

const (
	KindPing         InteractionKind = 1
	KindCommand      InteractionKind = 2
	KindComponent    InteractionKind = 3
	KindAutocomplete InteractionKind = 4
	KindModalSubmit  InteractionKind = 5
)

func (k InteractionKind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindCommand:
		return "command"
	case KindComponent:
		return "component"
	case KindAutocomplete:
		return "autocomplete"
	case KindModalSubmit:
		return "modal_submit"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k InteractionKind) Known() bool {
	switch k {
	case KindPing, KindCommand, KindComponent, KindAutocomplete, KindModalSubmit:
		return true
	default:
		return false
	}
}

// Deferrable reports whether the platform accepts a deferred acknowledgement
// for this kind. Deferring an autocomplete response is not a valid protocol
// action, and a ping never reaches the state machine.
func (k InteractionKind) Deferrable() bool {
	switch k {
	case KindCommand, KindComponent, KindModalSubmit:
		return true
	default:
		return false
	}
}

// ResponseType is the outbound response discriminant.
type ResponseType int

const (
	ResponsePong                   ResponseType = 1
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
	ResponseDeferredUpdateMessage  ResponseType = 6
	ResponseAutocompleteResult     ResponseType = 8
	ResponseModal                  ResponseType = 9
)

// PongResponse is the fixed acknowledgement body for a ping callback.
func PongResponse() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":%d}`, ResponsePong))
}

// DeferredAck returns the deferred-acknowledgement body for a kind, or false
// when the kind must hard-timeout instead.
func DeferredAck(kind InteractionKind) (json.RawMessage, bool) {
	if !kind.Deferrable() {
		return nil, false
	}
	responseType := ResponseDeferredChannelMessage
	if kind == KindComponent {
		responseType = ResponseDeferredUpdateMessage
	}
	return json.RawMessage(fmt.Sprintf(`{"type":%d}`, responseType)), true
}

type InteractionState int32

const (
	StatePending InteractionState = iota
	StateResponded
	StateTimedOut
)

func (s InteractionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResponded:
		return "responded"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Interaction is one authenticated, parsed callback awaiting its single
// response. The state transitions exactly once from Pending to Responded or
// TimedOut; the transition is guarded by a compare-and-swap so the resolver
// path and the timer path stay mutually exclusive without timing assumptions.
type Interaction struct {
	ID            string
	ApplicationID string
	Token         string
	Kind          InteractionKind
	Payload       json.RawMessage
	ReceivedAt    time.Time

	state    atomic.Int32
	response chan json.RawMessage
}

func NewInteraction(id string, kind InteractionKind, payload json.RawMessage) *Interaction {
	interaction := &Interaction{
		ID:         strings.TrimSpace(id),
		Kind:       kind,
		Payload:    append(json.RawMessage(nil), payload...),
		ReceivedAt: time.Now().UTC(),
		response:   make(chan json.RawMessage, 1),
	}
	return interaction
}

func (i *Interaction) State() InteractionState {
	if i == nil {
		return StateTimedOut
	}
	return InteractionState(i.state.Load())
}

// Response exposes the single-resolution channel the dispatcher races on.
// Exactly one value is ever sent: the payload of the winning Respond call.
func (i *Interaction) Response() <-chan json.RawMessage {
	if i == nil {
		return nil
	}
	return i.response
}

// Respond fulfills the interaction with the subscriber's payload. Valid only
// from Pending; a call in any other state reports a double response and
// leaves the first payload untouched.
func (i *Interaction) Respond(payload json.RawMessage) error {
	if i == nil {
		return ErrInteractionNotFound
	}
	if len(payload) == 0 {
		return fmt.Errorf("core: response payload is required")
	}
	if !i.state.CompareAndSwap(int32(StatePending), int32(StateResponded)) {
		return fmt.Errorf("%w: state is %s", ErrDoubleResponse, i.State())
	}
	i.response <- append(json.RawMessage(nil), payload...)
	return nil
}

// Expire moves a pending interaction to TimedOut. It reports whether this
// call won the transition; a false return means a Respond call got there
// first and its payload is (or will shortly be) available on Response.
func (i *Interaction) Expire() bool {
	if i == nil {
		return false
	}
	return i.state.CompareAndSwap(int32(StatePending), int32(StateTimedOut))
}
