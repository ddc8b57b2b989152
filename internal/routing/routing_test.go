package routing

import "testing"

func TestHintsDetectsCalendar(t *testing.T) {
	hints := Hints("what meetings do I have tomorrow?")
	if len(hints) == 0 {
		t.Fatalf("expected at least one hint")
	}
	if hints[0].Capability != CapabilityCalendar {
		t.Fatalf("expected top hint calendar, got %v", hints[0].Capability)
	}
}

func TestHintsDetectsHebrewCalendar(t *testing.T) {
	hints := Hints("מה יש לי מחר?")
	if len(hints) == 0 || hints[0].Capability != CapabilityCalendar {
		t.Fatalf("expected calendar hint for Hebrew message, got %+v", hints)
	}
}

func TestHintsDetectsTaskStore(t *testing.T) {
	hints := Hints("remind me to call the dentist")
	if len(hints) == 0 || hints[0].Capability != CapabilityTaskStore {
		t.Fatalf("expected taskStore hint, got %+v", hints)
	}
}

func TestTopFallsBackToGeneral(t *testing.T) {
	if got := Top("how is the weather conceptually speaking"); got != CapabilityGeneral {
		t.Fatalf("expected fallback to general, got %v", got)
	}
}

func TestLabelNeverExposesInternalNames(t *testing.T) {
	cases := map[Capability]string{
		CapabilityCalendar:  "calendar",
		CapabilityTaskStore: "reminders",
		CapabilityEmail:     "email",
		CapabilityMemory:    "notes",
		CapabilityMeta:      "settings",
		CapabilityGeneral:   "general chat",
	}
	for cap, want := range cases {
		if got := Label(cap); got != want {
			t.Fatalf("Label(%v) = %q, want %q", cap, got, want)
		}
	}
}

func TestHintsSortedDescending(t *testing.T) {
	hints := Hints("remind me about the meeting tomorrow and send an email")
	for i := 1; i < len(hints); i++ {
		if hints[i-1].Score < hints[i].Score {
			t.Fatalf("expected descending scores, got %+v", hints)
		}
	}
}
