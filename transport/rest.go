package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTClient issues outbound calls against the platform API. Each verb sends
// exactly the HTTP method its name says; nothing is silently upgraded or
// rewritten underneath the caller.
type RESTClient struct {
	Client               HTTPDoer
	BaseURL              string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64

	mu    sync.RWMutex
	token string
}

func NewRESTClient(cfg core.RestConfig, client HTTPDoer) *RESTClient {
	if client == nil {
		timeout := cfg.Timeout()
		if timeout <= 0 {
			timeout = defaultRESTClientTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RESTClient{
		Client:               client,
		BaseURL:              strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		token:                strings.TrimSpace(cfg.Token),
	}
}

func (c *RESTClient) SetToken(token string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *RESTClient) Get(ctx context.Context, path string, opts core.RequestOptions) (core.RestResponse, error) {
	return c.do(ctx, http.MethodGet, path, opts)
}

func (c *RESTClient) Post(ctx context.Context, path string, opts core.RequestOptions) (core.RestResponse, error) {
	return c.do(ctx, http.MethodPost, path, opts)
}

func (c *RESTClient) Put(ctx context.Context, path string, opts core.RequestOptions) (core.RestResponse, error) {
	return c.do(ctx, http.MethodPut, path, opts)
}

func (c *RESTClient) Patch(ctx context.Context, path string, opts core.RequestOptions) (core.RestResponse, error) {
	return c.do(ctx, http.MethodPatch, path, opts)
}

func (c *RESTClient) Delete(ctx context.Context, path string, opts core.RequestOptions) (core.RestResponse, error) {
	return c.do(ctx, http.MethodDelete, path, opts)
}

func (c *RESTClient) do(ctx context.Context, method, path string, opts core.RequestOptions) (core.RestResponse, error) {
	if c == nil || c.Client == nil {
		return core.RestResponse{}, transportError(
			"transport: rest client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := c.resolveURL(path)
	if err != nil {
		return core.RestResponse{}, err
	}
	query := target.Query()
	for key, value := range opts.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	target.RawQuery = query.Encode()

	requestCtx := ctx
	cancel := func() {}
	if opts.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return core.RestResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target.String()},
		)
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if len(opts.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		httpReq.Header.Set("Authorization", token)
	}
	for key, value := range opts.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now().UTC()
	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		return core.RestResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target.String()},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := c.responseBodyLimit()
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.RestResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return core.RestResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": maxBodyBytes},
		)
	}

	return core.RestResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"method":      method,
		},
	}, nil
}

func (c *RESTClient) resolveURL(path string) (*url.URL, error) {
	raw := strings.TrimSpace(path)
	if c.BaseURL != "" && !strings.Contains(raw, "://") {
		raw = c.BaseURL + "/" + strings.TrimLeft(raw, "/")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": raw},
		)
	}
	if parsed.String() == "" {
		return nil, transportError(
			"transport: request url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	return parsed, nil
}

func (c *RESTClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *RESTClient) responseBodyLimit() int64 {
	if c != nil && c.MaxResponseBodyBytes > 0 {
		return c.MaxResponseBodyBytes
	}
	return defaultRESTResponseBodyLimit
}

var _ core.RestClient = (*RESTClient)(nil)
