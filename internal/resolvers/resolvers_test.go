package resolvers

import (
	"context"
	"errors"
	"testing"
	"time"

	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
	"convoassist/internal/timectx"
)

type stubGateway struct {
	doc map[string]any
	err error
}

func (s stubGateway) Complete(ctx context.Context, req llmgateway.CompleteRequest) (string, error) {
	return "", errors.New("not used")
}

func (s stubGateway) CompleteJSON(ctx context.Context, req llmgateway.CompleteRequest, schema contracts.Name) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func testStep(capability, actionHint, message string) planner.PlanStep {
	return planner.PlanStep{
		ID:         "A",
		Capability: capability,
		ActionHint: actionHint,
		Constraints: planner.Constraints{
			RawMessage: message,
		},
	}
}

func testResolveContext() ResolveContext {
	return ResolveContext{
		Language: "en",
		UserID:   "u1",
		Now:      timectx.New(time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC), nil),
	}
}

func TestRegistryGetFindsByCapability(t *testing.T) {
	reg := NewRegistry(
		NewCalendar(stubGateway{}, "m", 0.3, 100),
		NewGeneral(stubGateway{}, "m", 0.3, 100),
	)
	if _, ok := reg.Get("calendar"); !ok {
		t.Fatal("expected calendar resolver to be registered")
	}
	if _, ok := reg.Get("meta"); ok {
		t.Fatal("did not expect meta resolver to be registered")
	}
}

func TestCalendarResolveUsesLLMOutputWhenValid(t *testing.T) {
	gw := stubGateway{doc: map[string]any{
		"operation": "create",
		"summary":   "dentist",
	}}
	r := NewCalendar(gw, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("calendar", "create", "book dentist"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Type != TypeExecute {
		t.Fatalf("expected create to execute directly without entity resolution, got %v", out.Type)
	}
	if out.Args["operation"] != "create" {
		t.Fatalf("expected create operation, got %v", out.Args["operation"])
	}
	if out.StepID != "A" {
		t.Fatalf("expected step id to be copied from PlanStep, got %q", out.StepID)
	}
}

func TestCalendarResolveFromLLMNeedsEntityResolutionForDelete(t *testing.T) {
	gw := stubGateway{doc: map[string]any{
		"operation": "delete",
		"summary":   "dentist",
	}}
	r := NewCalendar(gw, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("calendar", "delete", "cancel the dentist appointment"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Type != TypeNeedsEntityResolution {
		t.Fatalf("expected delete to need entity resolution, got %v", out.Type)
	}
	if out.EntityType != "calendarEvent" {
		t.Fatalf("expected calendarEvent entity type, got %q", out.EntityType)
	}
}

func TestCalendarResolveFallsBackOnGatewayError(t *testing.T) {
	r := NewCalendar(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("calendar", "delete", "cancel my 3pm meeting"), testResolveContext())
	if err != nil {
		t.Fatalf("Resolve should swallow the gateway error and fall back, got %v", err)
	}
	if out.Type != TypeNeedsEntityResolution {
		t.Fatalf("expected fallback delete to need entity resolution, got %v", out.Type)
	}
	if out.Args["operation"] != "deleteByWindow" {
		t.Fatalf("expected deleteByWindow fallback operation, got %v", out.Args["operation"])
	}
	if out.EntityType != "calendarEvent" {
		t.Fatalf("expected calendarEvent entity type, got %q", out.EntityType)
	}
}

func TestTaskStoreFallbackCompleteMeansDeleteWhenConfigured(t *testing.T) {
	r := NewTaskStore(stubGateway{err: errors.New("boom")}, "m", 0.3, 100, true)
	out, err := r.Resolve(context.Background(), testStep("taskStore", "update", "done with the report task"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["operation"] != "delete" {
		t.Fatalf("expected complete to map to delete, got %v", out.Args["operation"])
	}
}

func TestTaskStoreFallbackCompleteMeansUpdateWhenDisabled(t *testing.T) {
	r := NewTaskStore(stubGateway{err: errors.New("boom")}, "m", 0.3, 100, false)
	out, err := r.Resolve(context.Background(), testStep("taskStore", "update", "done with the report task"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["operation"] != "update" {
		t.Fatalf("expected complete to map to update, got %v", out.Args["operation"])
	}
}

func TestTaskStoreFallbackRecurringReminder(t *testing.T) {
	r := NewTaskStore(stubGateway{err: errors.New("boom")}, "m", 0.3, 100, true)
	out, err := r.Resolve(context.Background(), testStep("taskStore", "create", "remind me every day to stretch"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["reminder"] != "daily@09:00" {
		t.Fatalf("expected canonical daily reminder, got %v", out.Args["reminder"])
	}
}

func TestEmailFallbackNeverInventsRecipient(t *testing.T) {
	r := NewEmail(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("email", "create", "draft a note to the team"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.Args["to"]; ok {
		t.Fatal("fallback must not invent a recipient")
	}
}

func TestMemoryFallbackUsesRawMessageAsText(t *testing.T) {
	r := NewMemory(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("memory", "create", "remember my wifi password"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["text"] != "remember my wifi password" {
		t.Fatalf("expected raw message preserved as text, got %v", out.Args["text"])
	}
}

func TestGeneralFallbackReturnsCannedReply(t *testing.T) {
	r := NewGeneral(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("general", "respond", "hey there"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["reply"] == "" {
		t.Fatal("expected a non-empty canned reply")
	}
}

func TestMetaFallbackDefaultsToHelp(t *testing.T) {
	r := NewMeta(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	out, err := r.Resolve(context.Background(), testStep("meta", "help", "what can you do"), testResolveContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Args["operation"] != "help" {
		t.Fatalf("expected help fallback, got %v", out.Args["operation"])
	}
}
