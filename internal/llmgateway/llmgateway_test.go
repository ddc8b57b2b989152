package llmgateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convoassist/internal/contracts"
	"convoassist/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		BaseDelay:      time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Multiplier:     2.0,
		MaxAttempts:    2,
		JitterFraction: 0,
		SnippetLimit:   200,
		Sleep:          func(ctx context.Context, d time.Duration) error { return nil },
		Now:            time.Now,
		Rand:           func() float64 { return 0 },
	}
}

func TestCompleteReturnsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello back"}}]}`))
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, DefaultModel: "test-model"}, server.Client(), testPolicy(), nil)

	content, err := client.Complete(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "hello back" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestCompleteRequiresModel(t *testing.T) {
	client := New(Config{BaseURL: "http://example.invalid"}, http.DefaultClient, testPolicy(), nil)

	_, err := client.Complete(context.Background(), CompleteRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != ErrInvalidModel {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestCompleteJSONValidatesAgainstSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			`{\"intentType\":\"operation\",\"confidence\":0.9,\"riskLevel\":\"low\",\"needsApproval\":false,\"plan\":[{\"id\":\"A\",\"capability\":\"calendar\",\"actionHint\":\"list\"}]}` +
			`"}}]}`))
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, DefaultModel: "test-model"}, server.Client(), testPolicy(), nil)

	doc, err := client.CompleteJSON(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "what's on my calendar"}},
	}, contracts.PlanOutputSchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["intentType"] != "operation" {
		t.Fatalf("unexpected intentType: %v", doc["intentType"])
	}
}

func TestCompleteJSONRejectsMalformedCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"not json at all"}}]}`))
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, DefaultModel: "test-model"}, server.Client(), testPolicy(), nil)

	_, err := client.CompleteJSON(context.Background(), CompleteRequest{
		Messages: []Message{{Role: "user", Content: "what's on my calendar"}},
	}, contracts.PlanOutputSchema)
	if err == nil {
		t.Fatalf("expected validation error for malformed completion")
	}
}

func TestExtractJSONStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	got := extractJSON(raw)
	if got != "\n{\"a\":1}\n" {
		t.Fatalf("unexpected extracted content: %q", got)
	}
}
