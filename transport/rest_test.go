package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-interactions/core"
)

func TestRESTClient_EachVerbSendsItsOwnMethod(t *testing.T) {
	var seenMethod string
	var seenPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenMethod = r.Method
		seenPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewRESTClient(core.RestConfig{BaseURL: server.URL}, nil)
	calls := []struct {
		name string
		call func(context.Context, string, core.RequestOptions) (core.RestResponse, error)
		want string
	}{
		{"get", client.Get, http.MethodGet},
		{"post", client.Post, http.MethodPost},
		{"put", client.Put, http.MethodPut},
		{"patch", client.Patch, http.MethodPatch},
		{"delete", client.Delete, http.MethodDelete},
	}
	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.call(context.Background(), "/webhooks/app/token/messages/@original", core.RequestOptions{})
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if seenMethod != tc.want {
				t.Fatalf("expected %s on the wire, got %s", tc.want, seenMethod)
			}
			if seenPath != "/webhooks/app/token/messages/@original" {
				t.Fatalf("unexpected path %s", seenPath)
			}
			if res.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", res.StatusCode)
			}
		})
	}
}

func TestRESTClient_TokenAndHeaders(t *testing.T) {
	var authorization string
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewRESTClient(core.RestConfig{BaseURL: server.URL, Token: "Bot abc"}, nil)
	if _, err := client.Post(context.Background(), "/messages", core.RequestOptions{Body: []byte(`{"content":"hi"}`)}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if authorization != "Bot abc" {
		t.Fatalf("expected bot token header, got %q", authorization)
	}
	if contentType != "application/json" {
		t.Fatalf("expected json content type for body requests, got %q", contentType)
	}

	client.SetToken("Bot rotated")
	if _, err := client.Get(context.Background(), "/messages", core.RequestOptions{}); err != nil {
		t.Fatalf("get after rotate: %v", err)
	}
	if authorization != "Bot rotated" {
		t.Fatalf("expected rotated token, got %q", authorization)
	}
}

func TestRESTClient_QueryMerging(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRESTClient(core.RestConfig{BaseURL: server.URL}, nil)
	_, err := client.Get(context.Background(), "/entries?limit=5", core.RequestOptions{
		Query: map[string]string{"wait": "true"},
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rawQuery != "limit=5&wait=true" {
		t.Fatalf("expected merged query, got %q", rawQuery)
	}
}

func TestRESTClient_ResponseBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	client := NewRESTClient(core.RestConfig{BaseURL: server.URL}, nil)
	client.MaxResponseBodyBytes = 16
	if _, err := client.Get(context.Background(), "/big", core.RequestOptions{}); err == nil {
		t.Fatalf("expected oversize response to be rejected")
	}
}

func TestRESTClient_RequiresURL(t *testing.T) {
	client := NewRESTClient(core.RestConfig{}, http.DefaultClient)
	if _, err := client.Get(context.Background(), "   ", core.RequestOptions{}); err == nil {
		t.Fatalf("expected empty url rejection")
	}
}
