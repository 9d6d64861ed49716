package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPathChatCompletions {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "nope"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestOpenRouterClient_Complete(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `["example one","example two"]`)
	defer srv.Close()

	client := NewOpenRouterClient(WithBaseURL(srv.URL), WithAPIKey("sk-or-v1-test"))
	got, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `["example one","example two"]` {
		t.Errorf("Complete() = %q", got)
	}
}

func TestOpenRouterClient_Complete_SendsAuthAndAttribution(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenRouterClient(
		WithBaseURL(srv.URL),
		WithAPIKey("sk-or-v1-test"),
		WithAttribution("https://driftline.local", "driftline"),
	)
	if _, err := client.Complete(context.Background(), "p"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotAuth != "Bearer sk-or-v1-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer != "https://driftline.local" || gotTitle != "driftline" {
		t.Errorf("attribution headers = %q / %q", gotReferer, gotTitle)
	}
}

func TestOpenRouterClient_Complete_MissingKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	client := NewOpenRouterClient(WithBaseURL("http://localhost:0"))
	_, err := client.Complete(context.Background(), "p")
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Complete() error = %v, want ErrAuth", err)
	}
}

func TestOpenRouterClient_Complete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		sentinel  error
		transient bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, sentinel: ErrRateLimited, transient: true},
		{name: "server error", status: http.StatusInternalServerError, sentinel: ErrUnavailable, transient: true},
		{name: "unauthorized", status: http.StatusUnauthorized, sentinel: ErrAuth, transient: false},
		{name: "bad request", status: http.StatusBadRequest, sentinel: nil, transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.status, "")
			defer srv.Close()

			client := NewOpenRouterClient(WithBaseURL(srv.URL), WithAPIKey("sk-or-v1-test"))
			_, err := client.Complete(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, got, tt.transient)
			}
		})
	}
}

func TestOpenRouterClient_Complete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewOpenRouterClient(WithBaseURL(srv.URL), WithAPIKey("sk-or-v1-test"))
	_, err := client.Complete(context.Background(), "p")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Complete() error = %v, want ErrInvalidResponse", err)
	}
}

func TestIdentity(t *testing.T) {
	client := NewOpenRouterClient(WithModel("meta/llama-3-70b"))
	if got := client.Identity(); got != "openrouter/meta/llama-3-70b" {
		t.Errorf("Identity() = %q", got)
	}
}

func TestIsTransient_Sentinels(t *testing.T) {
	if IsTransient(nil) {
		t.Error("IsTransient(nil) = true")
	}
	if IsTransient(ErrAuth) {
		t.Error("auth errors must not be transient")
	}
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be transient")
	}
	if !IsTransient(&APIError{StatusCode: 503}) {
		t.Error("5xx APIError should be transient")
	}
	if IsTransient(&APIError{StatusCode: 400}) {
		t.Error("400 APIError must not be transient")
	}
}
