package entityres

import (
	"context"
	"testing"
	"time"

	"convoassist/internal/executors"
)

func seedCalendar(t *testing.T, now time.Time) *executors.MemoryCalendarExecutor {
	t.Helper()
	exec := executors.NewMemoryCalendarExecutor()
	events := []executors.CalendarEvent{
		{Summary: "Dentist appointment", Start: now.Add(2 * time.Hour), End: now.Add(3 * time.Hour)},
		{Summary: "Team standup", Start: now.Add(24 * time.Hour), End: now.Add(25 * time.Hour)},
	}
	for _, ev := range events {
		if _, err := exec.Create(ev); err != nil {
			t.Fatalf("seed create: %v", err)
		}
	}
	return exec
}

func TestResolveSingleEventMatchesOneCandidate(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := seedCalendar(t, now)
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{"summary": "dentist"}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindResolved {
		t.Fatalf("expected Resolved, got %v", out.Kind)
	}
	if len(out.ResolvedIDs) != 1 {
		t.Fatalf("expected exactly one resolved id, got %v", out.ResolvedIDs)
	}
}

func TestResolveSingleEventNoMatchIsNotFound(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := seedCalendar(t, now)
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{"summary": "birthday party"}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindNotFound {
		t.Fatalf("expected NotFound, got %v", out.Kind)
	}
}

func TestResolveSingleEventNoSummaryOrWindowIsClarifyQuery(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := seedCalendar(t, now)
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindClarifyQuery {
		t.Fatalf("expected ClarifyQuery, got %v", out.Kind)
	}
}

func TestResolveByWindowReturnsAllMatches(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := seedCalendar(t, now)
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "deleteByWindow", map[string]any{}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindResolved {
		t.Fatalf("expected Resolved, got %v", out.Kind)
	}
	if len(out.ResolvedIDs) != 2 {
		t.Fatalf("expected both seeded events, got %v", out.ResolvedIDs)
	}
}

func TestRecurringSeriesEmitsTwoOptionDisambiguation(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := executors.NewMemoryCalendarExecutor()
	if _, err := exec.Create(executors.CalendarEvent{Summary: "Weekly sync", Start: now.Add(time.Hour), RecurringSeriesID: "series-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{"summary": "weekly sync"}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindDisambiguation {
		t.Fatalf("expected Disambiguation for a recurring match, got %v", out.Kind)
	}
	if len(out.Candidates) != 2 {
		t.Fatalf("expected exactly two recurring-choice candidates, got %d", len(out.Candidates))
	}
}

func TestRecurringSeriesIntentSkipsDisambiguation(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	exec := executors.NewMemoryCalendarExecutor()
	if _, err := exec.Create(executors.CalendarEvent{Summary: "Weekly sync", Start: now.Add(time.Hour), RecurringSeriesID: "series-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewCalendar(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{"summary": "weekly sync", "recurringSeriesIntent": true}, ResolveContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindResolved {
		t.Fatalf("expected Resolved, got %v", out.Kind)
	}
	if !out.IsRecurring || out.SeriesID != "series-1" {
		t.Fatalf("expected resolved series id series-1, got %+v", out)
	}
}

func TestApplySelectionAllKeyword(t *testing.T) {
	r := NewCalendar(executors.NewMemoryCalendarExecutor(), 0.3, 0.2)
	candidates := []ResolutionCandidate{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}}

	out := r.ApplySelection("all", candidates, map[string]any{})
	if out.Kind != KindResolved {
		t.Fatalf("expected Resolved, got %v", out.Kind)
	}
	if len(out.ResolvedIDs) != 3 {
		t.Fatalf("expected all three ids, got %v", out.ResolvedIDs)
	}
}

func TestApplySelectionNumericPicksOneBased(t *testing.T) {
	r := NewCalendar(executors.NewMemoryCalendarExecutor(), 0.3, 0.2)
	candidates := []ResolutionCandidate{{ID: "e1"}, {ID: "e2"}}

	out := r.ApplySelection("2", candidates, map[string]any{})
	if out.Kind != KindResolved || len(out.ResolvedIDs) != 1 || out.ResolvedIDs[0] != "e2" {
		t.Fatalf("expected e2 resolved, got %+v", out)
	}
}

func TestApplySelectionOutOfRangeReinvitesDisambiguation(t *testing.T) {
	r := NewCalendar(executors.NewMemoryCalendarExecutor(), 0.3, 0.2)
	candidates := []ResolutionCandidate{{ID: "e1"}, {ID: "e2"}}

	out := r.ApplySelection("9", candidates, map[string]any{})
	if out.Kind != KindDisambiguation {
		t.Fatalf("expected re-emitted Disambiguation for out-of-range selection, got %v", out.Kind)
	}
}

func TestApplySelectionRecurringChoiceOne(t *testing.T) {
	r := NewCalendar(executors.NewMemoryCalendarExecutor(), 0.3, 0.2)
	candidates := []ResolutionCandidate{
		{ID: "all", Metadata: CandidateMetadata{RecurringSeriesID: "series-1"}},
		{ID: "single", Metadata: CandidateMetadata{RecurringSeriesID: "event-1"}},
	}

	out := r.ApplySelection("1", candidates, map[string]any{})
	if out.Kind != KindResolved || !out.IsRecurring || out.SeriesID != "series-1" {
		t.Fatalf("expected series resolved, got %+v", out)
	}
}

func TestTaskStoreResolveDeleteAllReturnsEveryTask(t *testing.T) {
	exec := executors.NewMemoryTaskStoreExecutor()
	if _, err := exec.Create(executors.Task{Text: "buy milk"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := exec.Create(executors.Task{Text: "walk the dog"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewTaskStore(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "deleteAll", map[string]any{}, ResolveContext{Now: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindResolved || len(out.ResolvedIDs) != 2 {
		t.Fatalf("expected both tasks resolved, got %+v", out)
	}
}

func TestTaskStoreResolveNoTextIsClarifyQuery(t *testing.T) {
	exec := executors.NewMemoryTaskStoreExecutor()
	r := NewTaskStore(exec, 0.3, 0.2)

	out, err := r.Resolve(context.Background(), "delete", map[string]any{}, ResolveContext{Now: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != KindClarifyQuery {
		t.Fatalf("expected ClarifyQuery, got %v", out.Kind)
	}
}
