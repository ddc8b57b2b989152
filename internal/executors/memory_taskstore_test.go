package executors

import "testing"

func TestTaskStoreCreateUpdateDelete(t *testing.T) {
	exec := NewMemoryTaskStoreExecutor()

	created, err := exec.Create(Task{Text: "Buy milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := exec.Update(created.ID, Task{Text: "Buy milk", Done: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Done {
		t.Fatalf("expected task marked done")
	}

	tasks, err := exec.List(Filter{Status: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 done task, got %d", len(tasks))
	}

	if err := exec.Delete(created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := exec.Delete(created.ID); err == nil {
		t.Fatalf("expected error deleting already-deleted task")
	}
}

func TestTaskStoreUpdateMissing(t *testing.T) {
	exec := NewMemoryTaskStoreExecutor()
	if _, err := exec.Update("missing", Task{}); err == nil {
		t.Fatalf("expected error updating missing task")
	}
}
