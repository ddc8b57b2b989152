package executors

import "testing"

func TestEmailCreateAndSend(t *testing.T) {
	exec := NewMemoryEmailExecutor()

	draft, err := exec.Create(EmailDraft{To: []string{"a@example.com"}, Subject: "Hi", Body: "Hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.IsSent(draft.ID) {
		t.Fatalf("expected draft not sent yet")
	}

	if err := exec.Send(draft.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exec.IsSent(draft.ID) {
		t.Fatalf("expected draft marked sent")
	}
}

func TestEmailSendMissing(t *testing.T) {
	exec := NewMemoryEmailExecutor()
	if err := exec.Send("missing"); err == nil {
		t.Fatalf("expected error sending missing draft")
	}
}
