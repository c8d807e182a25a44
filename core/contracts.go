package core

import (
	"context"
	"encoding/json"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// InboundRequest is the canonical transport-agnostic request shape every host
// adapter normalizes into. Body carries the raw, unparsed bytes: signature
// verification runs against this exact byte sequence.
type InboundRequest struct {
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

// InboundResult is the canonical outbound response shape host adapters map
// back onto their transport.
type InboundResult struct {
	Accepted   bool
	StatusCode int
	Body       []byte
	Metadata   map[string]any
}

type Verifier interface {
	Verify(ctx context.Context, req InboundRequest) error
}

// VerifyFunc adapts a caller-supplied verification function into a Verifier.
// A configured VerifyFunc fully replaces the built-in signature check.
type VerifyFunc func(ctx context.Context, req InboundRequest) error

func (f VerifyFunc) Verify(ctx context.Context, req InboundRequest) error {
	return f(ctx, req)
}

// InteractionObserver is notified once per authenticated non-ping callback.
// The observer (or code it hands off to) resolves the interaction through
// Respond; returning from OnInteraction does not finalize anything.
type InteractionObserver interface {
	OnInteraction(ctx context.Context, interaction *Interaction)
}

type ObserverFunc func(ctx context.Context, interaction *Interaction)

func (f ObserverFunc) OnInteraction(ctx context.Context, interaction *Interaction) {
	f(ctx, interaction)
}

// BurstDecision reports whether a callback should run. Suppressed callbacks
// are still acknowledged to the platform; Metadata explains the suppression.
type BurstDecision struct {
	Allow    bool
	Metadata map[string]any
}

// BurstController throttles rapid-fire callbacks that share a key, such as a
// component being clicked repeatedly before the first resolution lands.
type BurstController interface {
	Allow(ctx context.Context, req InboundRequest) (BurstDecision, error)
}

const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusProcessed  = "processed"
	DeliveryStatusFailed     = "failed"
)

type DeliveryRecord struct {
	ID            string
	ClaimID       string
	InteractionID string
	Status        string
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeliveryLedger dedupes redelivered callbacks. Claim returns claimed=false
// when the interaction id was already seen; Complete and Fail close out the
// claim taken by the winning request.
type DeliveryLedger interface {
	Claim(ctx context.Context, interactionID string, payload []byte) (DeliveryRecord, bool, error)
	Get(ctx context.Context, interactionID string) (DeliveryRecord, error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error) error
}

// StoreProvider exposes the persistence-backed collaborators assembled by a
// store factory.
type StoreProvider interface {
	DeliveryLedger() DeliveryLedger
	EventRecorder() InteractionEventRecorder
}

const (
	EventOutcomeResponded = "responded"
	EventOutcomeDeferred  = "deferred"
	EventOutcomeTimedOut  = "timed_out"
	EventOutcomeCancelled = "cancelled"
	EventOutcomeErrored   = "errored"
)

type InteractionEvent struct {
	ID            string
	InteractionID string
	Kind          string
	Outcome       string
	Error         string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// InteractionEventRecorder appends terminal interaction outcomes to an audit
// log. Recording failures must not affect the response already produced.
type InteractionEventRecorder interface {
	Record(ctx context.Context, event InteractionEvent) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return glog.Nop()
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

type RequestOptions struct {
	Query   map[string]string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

type RestResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// RestClient is the outbound collaborator used to call back into the remote
// platform (follow-up messages, deferred-response edits). Each verb issues
// exactly the HTTP method its name says.
type RestClient interface {
	Get(ctx context.Context, path string, opts RequestOptions) (RestResponse, error)
	Post(ctx context.Context, path string, opts RequestOptions) (RestResponse, error)
	Put(ctx context.Context, path string, opts RequestOptions) (RestResponse, error)
	Patch(ctx context.Context, path string, opts RequestOptions) (RestResponse, error)
	Delete(ctx context.Context, path string, opts RequestOptions) (RestResponse, error)
	SetToken(token string)
}

// PendingResolver is the surface command handlers use to act on live
// interactions by id.
type PendingResolver interface {
	Resolve(ctx context.Context, interactionID string, response json.RawMessage) error
	Expire(ctx context.Context, interactionID string) error
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
