package fuzzy

import "testing"

func TestScoreExactMatch(t *testing.T) {
	s := Score("dentist appointment", "dentist appointment")
	if s != 1 {
		t.Fatalf("expected exact match score 1, got %v", s)
	}
}

func TestScoreSubstring(t *testing.T) {
	s := Score("dentist", "dentist appointment with dr. lee")
	if s <= 0.5 {
		t.Fatalf("expected high substring score, got %v", s)
	}
}

func TestScoreTokenOverlap(t *testing.T) {
	s := Score("team standup meeting", "daily team meeting")
	if s <= 0 {
		t.Fatalf("expected nonzero token overlap score, got %v", s)
	}
}

func TestScoreNoMatch(t *testing.T) {
	s := Score("dentist appointment", "grocery shopping list")
	if s > 0.2 {
		t.Fatalf("expected low score for unrelated text, got %v", s)
	}
}

func TestScoreEmptyQuery(t *testing.T) {
	if s := Score("", "dentist appointment"); s != 0 {
		t.Fatalf("expected 0 for empty query, got %v", s)
	}
}

func TestScoreMultipleFields(t *testing.T) {
	s := Score("lee", "dentist appointment", "with dr. lee")
	if s <= 0 {
		t.Fatalf("expected best-field score to win, got %v", s)
	}
}

func TestRankFiltersByMinAndSortsDescending(t *testing.T) {
	items := map[string][]string{
		"a": {"dentist appointment"},
		"b": {"dentist checkup with dr. lee"},
		"c": {"grocery shopping list"},
	}

	ranked := Rank("dentist appointment", 0.3, items)
	if len(ranked) == 0 {
		t.Fatalf("expected at least one candidate above threshold")
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Fatalf("expected descending scores, got %v then %v", ranked[i-1].Score, ranked[i].Score)
		}
	}
	for _, c := range ranked {
		if c.ID == "c" {
			t.Fatalf("unrelated candidate %q should not pass threshold", c.ID)
		}
	}
}
