package transport

import (
	"context"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

// Raw bodies above this size are rejected before verification to bound memory.
const defaultMaxRequestBodyBytes int64 = 8 << 20 // 8 MiB

// Processor is the dispatch pipeline the HTTP handler feeds.
type Processor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// FromHTTPRequest normalizes an *http.Request into the canonical request
// shape. The body is read exactly once and kept byte-for-byte intact so
// signature verification sees what was on the wire.
func FromHTTPRequest(r *http.Request) (core.InboundRequest, error) {
	if r == nil {
		return core.InboundRequest{}, transportError(
			"transport: http request is nil",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	var body []byte
	if r.Body != nil {
		defer r.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(r.Body, defaultMaxRequestBodyBytes+1))
		if err != nil {
			return core.InboundRequest{}, transportWrapError(
				err,
				goerrors.CategoryBadInput,
				"transport: read request body",
				http.StatusBadRequest,
				nil,
			)
		}
		if int64(len(raw)) > defaultMaxRequestBodyBytes {
			return core.InboundRequest{}, transportError(
				"transport: request body exceeds limit",
				goerrors.CategoryBadInput,
				http.StatusRequestEntityTooLarge,
				map[string]any{"limit_bytes": defaultMaxRequestBodyBytes},
			)
		}
		body = raw
	}
	return core.InboundRequest{
		Headers: flattenHeaders(r.Header),
		Body:    body,
		Metadata: map[string]any{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	}, nil
}

// FromRaw builds an inbound request from already-extracted headers and body,
// for hosts that are not net/http (lambda runtimes, test drivers).
func FromRaw(headers map[string]string, body []byte) core.InboundRequest {
	normalized := make(map[string]string, len(headers))
	for key, value := range headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		normalized[trimmed] = strings.TrimSpace(value)
	}
	return core.InboundRequest{
		Headers: normalized,
		Body:    append([]byte(nil), body...),
	}
}

// WriteResult maps a dispatch result onto the http response. A result body is
// always JSON; an empty body writes the status line alone.
func WriteResult(w http.ResponseWriter, result core.InboundResult) {
	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if len(result.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if len(result.Body) > 0 {
		_, _ = w.Write(result.Body)
	}
}

// Handler serves the interactions endpoint over net/http. Process errors are
// already reflected in the result's status and body; they are logged, not
// re-mapped.
type Handler struct {
	Processor Processor
	Logger    core.Logger
}

func NewHandler(processor Processor, logger core.Logger) *Handler {
	return &Handler{Processor: processor, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Processor == nil {
		http.Error(w, "handler not configured", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := FromHTTPRequest(r)
	if err != nil {
		richErr := core.MapInteractionError(err)
		WriteResult(w, core.InboundResult{
			StatusCode: richErr.Code,
			Body:       []byte(`{"message":"invalid request"}`),
		})
		return
	}
	result, err := h.Processor.Process(r.Context(), req)
	if err != nil {
		h.logger().Debug("interaction request failed", "status", result.StatusCode, "error", err)
	}
	WriteResult(w, result)
}

func (h *Handler) logger() core.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return core.NopLogger()
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ http.Handler = (*Handler)(nil)
