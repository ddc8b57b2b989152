package executors

import "testing"

func TestMemoryNoteCreateAndListByTags(t *testing.T) {
	exec := NewMemoryMemoryExecutor()
	exec.Create(MemoryNote{Text: "Wifi password is hunter2", Tags: []string{"home"}})
	exec.Create(MemoryNote{Text: "Anniversary is June 3", Tags: []string{"personal"}})

	notes, err := exec.List(Filter{Tags: []string{"home"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
}

func TestMemoryNoteDeleteMissing(t *testing.T) {
	exec := NewMemoryMemoryExecutor()
	if err := exec.Delete("missing"); err == nil {
		t.Fatalf("expected error deleting missing note")
	}
}
