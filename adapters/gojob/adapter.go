// Package gojob bridges the runtime's job contracts to go-job queues and
// workers, and hosts the maintenance executors that keep the delivery ledger
// and event log bounded.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDLedgerPurge   = "interactions.ledger.purge"
	JobIDEventLogPurge = "interactions.events.purge"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps the runtime message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the runtime contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// NewLedgerPurgeMessage builds the periodic purge job. The idempotency key
// pins one purge per cutoff so overlapping schedulers collapse.
func NewLedgerPurgeMessage(cutoff time.Time) *core.JobExecutionMessage {
	cutoff = cutoff.UTC().Truncate(time.Minute)
	return &core.JobExecutionMessage{
		JobID:          JobIDLedgerPurge,
		Parameters:     map[string]any{"cutoff": cutoff.Format(time.RFC3339)},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDLedgerPurge, cutoff.Unix()),
		DedupPolicy:    "drop",
	}
}

// Purger is the slice of the delivery store the purge job needs.
type Purger interface {
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// LedgerPurgeExecutor runs a single ledger purge job delivery.
type LedgerPurgeExecutor struct {
	Store  Purger
	Logger core.Logger
}

func NewLedgerPurgeExecutor(store Purger, logger core.Logger) *LedgerPurgeExecutor {
	return &LedgerPurgeExecutor{Store: store, Logger: logger}
}

func (e *LedgerPurgeExecutor) Execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if e == nil || e.Store == nil {
		return fmt.Errorf("gojob: purge store is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	raw, _ := msg.Parameters["cutoff"].(string)
	cutoff, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("gojob: parse purge cutoff: %w", err)
	}
	purged, err := e.Store.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if e.Logger != nil {
		e.Logger.Info("purged delivery records", "count", purged, "cutoff", cutoff)
	}
	return nil
}

// NewEventLogPurgeMessage builds the periodic event-log purge job with the
// same per-cutoff idempotency scheme as the ledger purge.
func NewEventLogPurgeMessage(cutoff time.Time) *core.JobExecutionMessage {
	cutoff = cutoff.UTC().Truncate(time.Minute)
	return &core.JobExecutionMessage{
		JobID:          JobIDEventLogPurge,
		Parameters:     map[string]any{"cutoff": cutoff.Format(time.RFC3339)},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDEventLogPurge, cutoff.Unix()),
		DedupPolicy:    "drop",
	}
}

// EventLogPruner is the slice of the event store the purge job needs.
type EventLogPruner interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// EventLogPurgeExecutor runs a single event-log purge job delivery.
type EventLogPurgeExecutor struct {
	Store  EventLogPruner
	Logger core.Logger
}

func NewEventLogPurgeExecutor(store EventLogPruner, logger core.Logger) *EventLogPurgeExecutor {
	return &EventLogPurgeExecutor{Store: store, Logger: logger}
}

func (e *EventLogPurgeExecutor) Execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if e == nil || e.Store == nil {
		return fmt.Errorf("gojob: event log store is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	raw, _ := msg.Parameters["cutoff"].(string)
	cutoff, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("gojob: parse purge cutoff: %w", err)
	}
	purged, err := e.Store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if e.Logger != nil {
		e.Logger.Info("purged interaction events", "count", purged, "cutoff", cutoff)
	}
	return nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
