package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/verify"
)

const (
	metricReceived  = "interactions.received"
	metricResolved  = "interactions.resolved"
	metricDeferred  = "interactions.deferred"
	metricTimedOut  = "interactions.timed_out"
	metricCancelled = "interactions.cancelled"
	metricLatencyMS = "interactions.resolve_latency_ms"
)

// Dispatcher runs one inbound callback end to end. Process holds the request
// open until a subscriber resolves the interaction or the acknowledgement
// window closes, whichever happens first; the interaction's compare-and-swap
// guarantees exactly one of those paths produces the response.
type Dispatcher struct {
	Verifier core.Verifier
	Observer core.InteractionObserver
	Ledger   core.DeliveryLedger
	Events   core.InteractionEventRecorder
	Registry *core.PendingRegistry
	// Bursts optionally suppresses rapid repeats sharing a throttle key.
	// Suppressed callbacks are acknowledged without reaching subscribers.
	Bursts BurstController

	ReplyTimeout   time.Duration
	DeferOnTimeout bool
	// Debug routes per-request lifecycle diagnostics to the logger's debug
	// level. Off by default; error and warning paths always log.
	Debug bool

	Logger      core.Logger
	Metrics     core.MetricsRecorder
	ErrorMapper core.ErrorMapper
	Now         func() time.Time
}

// New wires a dispatcher from resolved configuration and dependencies. When no
// verifier is supplied the built-in ed25519 verifier is constructed from the
// configured public key; having neither is a wiring error.
func New(cfg core.Config, deps core.Dependencies) (*Dispatcher, error) {
	verifier := deps.Verifier
	if verifier == nil {
		if strings.TrimSpace(cfg.PublicKey) == "" {
			if deps.ErrorFactory != nil {
				return nil, deps.ErrorFactory("inbound: a verifier or a public key is required", goerrors.CategoryBadInput).
					WithCode(http.StatusBadRequest).
					WithTextCode(core.ErrorBadInput)
			}
			return nil, inboundBadInput("inbound: a verifier or a public key is required", nil)
		}
		verifier = verify.NewEd25519Verifier(cfg.PublicKey)
	}
	registry := deps.Registry
	if registry == nil {
		registry = core.NewPendingRegistry()
	}
	metrics := deps.MetricsRecorder
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Dispatcher{
		Verifier:       verifier,
		Observer:       deps.Observer,
		Bursts:         deps.Bursts,
		Ledger:         deps.Ledger,
		Events:         deps.EventRecorder,
		Registry:       registry,
		ReplyTimeout:   cfg.ReplyTimeout(),
		DeferOnTimeout: cfg.DeferOnTimeout,
		Debug:          cfg.Debug,
		Logger:         deps.Logger,
		Metrics:        metrics,
		ErrorMapper:    deps.ErrorMapper,
	}, nil
}

// Process authenticates, parses, and dispatches a single callback, returning
// the transport-agnostic result the host adapter writes back. The returned
// error carries diagnostic detail for the caller's logs; the result body is
// always safe to hand to the remote platform.
func (d *Dispatcher) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if d == nil {
		return core.InboundResult{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	start := d.now()

	if len(bytes.TrimSpace(req.Body)) == 0 {
		err := inboundError(
			"inbound: request body is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			core.ErrorMalformedRequest,
			nil,
		)
		return failureResult(http.StatusBadRequest, core.ErrorMalformedRequest, "request body is required", nil), err
	}

	if err := d.Verifier.Verify(ctx, req); err != nil {
		// The outbound body never explains which check failed; the wrapped
		// error keeps the detail for logs.
		d.logger().Debug("inbound request rejected", "reason", err)
		return failureResult(
				http.StatusUnauthorized,
				core.ErrorUnauthorized,
				"signature verification failed",
				map[string]any{"rejected": true},
			), inboundWrapError(
				err,
				goerrors.CategoryAuth,
				"inbound: request verification failed",
				http.StatusUnauthorized,
				core.ErrorUnauthorized,
				nil,
			)
	}

	interaction, err := core.ParseInteraction(req.Body)
	if err != nil {
		envelope := d.mapError(err)
		return failureResult(http.StatusBadRequest, core.ErrorParse, envelope.Message, nil), envelope
	}

	d.Metrics.IncCounter(ctx, metricReceived, 1, map[string]string{"kind": interaction.Kind.String()})
	if d.Debug {
		d.logger().Debug("interaction received", "interaction_id", interaction.ID, "kind", interaction.Kind.String())
	}

	if interaction.Kind == core.KindPing {
		// Liveness probes skip the ledger and the observer entirely.
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Body:       core.PongResponse(),
			Metadata:   map[string]any{"kind": interaction.Kind.String()},
		}, nil
	}

	if !interaction.Kind.Known() {
		d.logger().Warn("unsupported interaction kind", "kind", int(interaction.Kind), "interaction_id", interaction.ID)
		err := inboundError(
			fmt.Sprintf("inbound: unsupported interaction kind %d", int(interaction.Kind)),
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			core.ErrorUnsupported,
			map[string]any{"kind": int(interaction.Kind), "interaction_id": interaction.ID},
		)
		return failureResult(http.StatusBadRequest, core.ErrorUnsupported, "unsupported interaction kind", map[string]any{
			"interaction_id": interaction.ID,
		}), err
	}

	if d.Bursts != nil {
		decision, err := d.Bursts.Allow(ctx, req)
		if err != nil {
			// Burst control is best-effort; a broken controller never blocks
			// delivery.
			d.logger().Warn("burst controller failed", "interaction_id", interaction.ID, "error", err)
		} else if !decision.Allow {
			metadata := map[string]any{
				"interaction_id": interaction.ID,
				"kind":           interaction.Kind.String(),
				"suppressed":     true,
			}
			for key, value := range decision.Metadata {
				metadata[key] = value
			}
			d.logger().Info("burst suppressed", "interaction_id", interaction.ID)
			return core.InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata:   metadata,
			}, nil
		}
	}

	claimID := ""
	if d.Ledger != nil {
		record, claimed, err := d.Ledger.Claim(ctx, interaction.ID, req.Body)
		if err != nil {
			wrapped := inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: delivery claim failed",
				http.StatusInternalServerError,
				core.ErrorInternal,
				map[string]any{"interaction_id": interaction.ID},
			)
			return failureResult(http.StatusInternalServerError, core.ErrorInternal, "delivery claim failed", nil), wrapped
		}
		if !claimed {
			// Redelivery of an interaction already seen; acknowledge without
			// re-notifying subscribers.
			d.logger().Info("duplicate delivery suppressed", "interaction_id", interaction.ID, "status", record.Status)
			return core.InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata: map[string]any{
					"interaction_id": interaction.ID,
					"kind":           interaction.Kind.String(),
					"deduped":        true,
				},
			}, nil
		}
		claimID = record.ClaimID
	}

	if err := d.Registry.Add(interaction); err != nil {
		// A concurrent in-flight duplicate that slipped past the ledger.
		d.failClaim(ctx, claimID, err)
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata: map[string]any{
				"interaction_id": interaction.ID,
				"kind":           interaction.Kind.String(),
				"deduped":        true,
			},
		}, nil
	}
	defer d.Registry.Remove(interaction.ID)

	if err := d.notifyObserver(ctx, interaction); err != nil {
		interaction.Expire()
		d.failClaim(ctx, claimID, err)
		d.recordEvent(ctx, interaction, core.EventOutcomeErrored, err)
		return failureResult(http.StatusInternalServerError, core.ErrorInternal, "interaction handler failed", map[string]any{
			"interaction_id": interaction.ID,
		}), err
	}

	result, err := d.await(ctx, interaction, claimID, start)
	return result, err
}

// await races the subscriber's resolution against the acknowledgement window
// and the caller's context. Whichever arm wins the interaction's CAS owns the
// terminal outcome; losing arms drain the winning payload instead.
func (d *Dispatcher) await(ctx context.Context, interaction *core.Interaction, claimID string, start time.Time) (core.InboundResult, error) {
	timer := time.NewTimer(d.replyTimeout())
	defer timer.Stop()

	select {
	case payload := <-interaction.Response():
		return d.resolved(ctx, interaction, claimID, payload, start)

	case <-timer.C:
		if !interaction.Expire() {
			// Respond won the CAS while the timer fired; its payload is
			// already buffered.
			return d.resolved(ctx, interaction, claimID, <-interaction.Response(), start)
		}
		if d.DeferOnTimeout {
			if ack, ok := core.DeferredAck(interaction.Kind); ok {
				d.Metrics.IncCounter(ctx, metricDeferred, 1, map[string]string{"kind": interaction.Kind.String()})
				d.completeClaim(ctx, claimID)
				d.recordEvent(ctx, interaction, core.EventOutcomeDeferred, nil)
				d.logger().Info("interaction deferred at deadline", "interaction_id", interaction.ID, "kind", interaction.Kind.String())
				return core.InboundResult{
					Accepted:   true,
					StatusCode: http.StatusOK,
					Body:       ack,
					Metadata: map[string]any{
						"interaction_id": interaction.ID,
						"kind":           interaction.Kind.String(),
						"deferred":       true,
					},
				}, nil
			}
		}
		d.Metrics.IncCounter(ctx, metricTimedOut, 1, map[string]string{"kind": interaction.Kind.String()})
		err := inboundError(
			fmt.Sprintf("inbound: interaction %s timed out after %s", interaction.ID, d.replyTimeout()),
			goerrors.CategoryOperation,
			http.StatusGatewayTimeout,
			core.ErrorTimedOut,
			map[string]any{"interaction_id": interaction.ID, "kind": interaction.Kind.String()},
		)
		d.failClaim(ctx, claimID, err)
		d.recordEvent(ctx, interaction, core.EventOutcomeTimedOut, err)
		return failureResult(http.StatusGatewayTimeout, core.ErrorTimedOut, "interaction timed out", map[string]any{
			"interaction_id": interaction.ID,
		}), err

	case <-ctx.Done():
		if !interaction.Expire() {
			return d.resolved(ctx, interaction, claimID, <-interaction.Response(), start)
		}
		d.Metrics.IncCounter(ctx, metricCancelled, 1, map[string]string{"kind": interaction.Kind.String()})
		err := inboundWrapError(
			ctx.Err(),
			goerrors.CategoryOperation,
			fmt.Sprintf("inbound: interaction %s cancelled", interaction.ID),
			http.StatusServiceUnavailable,
			core.ErrorCancelled,
			map[string]any{"interaction_id": interaction.ID, "kind": interaction.Kind.String()},
		)
		d.failClaim(context.WithoutCancel(ctx), claimID, err)
		d.recordEvent(context.WithoutCancel(ctx), interaction, core.EventOutcomeCancelled, err)
		return failureResult(http.StatusServiceUnavailable, core.ErrorCancelled, "interaction cancelled", map[string]any{
			"interaction_id": interaction.ID,
		}), err
	}
}

func (d *Dispatcher) resolved(ctx context.Context, interaction *core.Interaction, claimID string, payload json.RawMessage, start time.Time) (core.InboundResult, error) {
	elapsed := d.now().Sub(start)
	if d.Debug {
		d.logger().Debug("interaction resolved", "interaction_id", interaction.ID, "elapsed_ms", elapsed.Milliseconds())
	}
	d.Metrics.IncCounter(ctx, metricResolved, 1, map[string]string{"kind": interaction.Kind.String()})
	d.Metrics.ObserveHistogram(ctx, metricLatencyMS, float64(elapsed.Milliseconds()), map[string]string{"kind": interaction.Kind.String()})
	d.completeClaim(ctx, claimID)
	d.recordEvent(ctx, interaction, core.EventOutcomeResponded, nil)
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Body:       payload,
		Metadata: map[string]any{
			"interaction_id": interaction.ID,
			"kind":           interaction.Kind.String(),
		},
	}, nil
}

// notifyObserver hands the interaction to the subscriber synchronously. A
// panicking observer must not take the dispatcher down with it.
func (d *Dispatcher) notifyObserver(ctx context.Context, interaction *core.Interaction) (err error) {
	if d.Observer == nil {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = inboundError(
				fmt.Sprintf("inbound: observer panicked: %v", recovered),
				goerrors.CategoryInternal,
				http.StatusInternalServerError,
				core.ErrorInternal,
				map[string]any{"interaction_id": interaction.ID},
			)
		}
	}()
	d.Observer.OnInteraction(ctx, interaction)
	return nil
}

func (d *Dispatcher) completeClaim(ctx context.Context, claimID string) {
	if d.Ledger == nil || claimID == "" {
		return
	}
	if err := d.Ledger.Complete(ctx, claimID); err != nil {
		d.logger().Error("complete delivery claim", "claim_id", claimID, "error", err)
	}
}

func (d *Dispatcher) failClaim(ctx context.Context, claimID string, cause error) {
	if d.Ledger == nil || claimID == "" {
		return
	}
	if err := d.Ledger.Fail(ctx, claimID, cause); err != nil {
		d.logger().Error("fail delivery claim", "claim_id", claimID, "error", err)
	}
}

func (d *Dispatcher) recordEvent(ctx context.Context, interaction *core.Interaction, outcome string, cause error) {
	if d.Events == nil {
		return
	}
	event := core.InteractionEvent{
		InteractionID: interaction.ID,
		Kind:          interaction.Kind.String(),
		Outcome:       outcome,
		CreatedAt:     d.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := d.Events.Record(ctx, event); err != nil {
		d.logger().Error("record interaction event", "interaction_id", interaction.ID, "outcome", outcome, "error", err)
	}
}

func (d *Dispatcher) mapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if d != nil && d.ErrorMapper != nil {
		if mapped := d.ErrorMapper(err); mapped != nil {
			return mapped
		}
	}
	return core.MapInteractionError(err)
}

func (d *Dispatcher) replyTimeout() time.Duration {
	if d != nil && d.ReplyTimeout > 0 {
		return d.ReplyTimeout
	}
	return core.DefaultReplyTimeout
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) logger() core.Logger {
	if d != nil && d.Logger != nil {
		return d.Logger
	}
	return core.NopLogger()
}

func failureResult(status int, textCode, message string, metadata map[string]any) core.InboundResult {
	body, _ := json.Marshal(map[string]string{
		"text_code": textCode,
		"message":   message,
	})
	return core.InboundResult{
		Accepted:   false,
		StatusCode: status,
		Body:       body,
		Metadata:   metadata,
	}
}
