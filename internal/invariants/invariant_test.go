package invariants

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestInvariantHoldsSilently(t *testing.T) {
	var buf bytes.Buffer
	checker := NewChecker(slog.New(slog.NewTextHandler(&buf, nil)), true, nil)

	if !checker.Invariant(true, Context{ID: ScoreInRange}) {
		t.Fatalf("expected true")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %q", buf.String())
	}
}

func TestInvariantLogsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	var recorded []ID
	checker := NewChecker(slog.New(slog.NewTextHandler(&buf, nil)), false, func(id ID) {
		recorded = append(recorded, id)
	})

	ok := checker.Invariant(false, Context{
		ID:      DecayInRange,
		Message: "decay outside [0,1]",
		Details: map[string]any{"decay": 1.2, "text": "secret customer quote"},
	})
	if ok {
		t.Fatalf("expected false")
	}
	out := buf.String()
	if !strings.Contains(out, "INV-3") {
		t.Fatalf("expected invariant id in log, got %q", out)
	}
	if strings.Contains(out, "secret customer quote") {
		t.Fatalf("sensitive detail leaked into log: %q", out)
	}
	if len(recorded) != 1 || recorded[0] != DecayInRange {
		t.Fatalf("unexpected recorded ids: %v", recorded)
	}
}

func TestInvariantStrictPanics(t *testing.T) {
	checker := NewChecker(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), true, nil)

	defer func() {
		r := recover()
		v, ok := r.(*Violation)
		if !ok {
			t.Fatalf("expected *Violation panic, got %v", r)
		}
		if v.ID != CeilingNeverRaises {
			t.Fatalf("unexpected violation id %s", v.ID)
		}
	}()
	checker.Invariant(false, Context{ID: CeilingNeverRaises, Message: "ceiling raised score"})
	t.Fatalf("expected panic")
}

func TestNilCheckerNeverPanics(t *testing.T) {
	var checker *Checker
	if checker.Invariant(false, Context{ID: ArtifactHasRunID}) {
		t.Fatalf("expected false")
	}
}

func TestSafeDetails(t *testing.T) {
	type band string
	details := SafeDetails(map[string]any{
		"score":         92.5,
		"repairs":       3,
		"band":          band("high"),
		"run_id":        strings.Repeat("r", 100),
		"competitorUrl": "https://acme.test",
		"window":        time.Minute,
		"nested":        map[string]any{"x": 1},
		"nil":           nil,
	})

	if details["score"] != 92.5 || details["repairs"] != 3 {
		t.Fatalf("numeric details dropped: %v", details)
	}
	if details["band"] != "high" {
		t.Fatalf("string-kinded detail not kept: %v", details["band"])
	}
	if got := details["run_id"].(string); len(got) != maxDetailLength {
		t.Fatalf("expected truncation to %d, got %d", maxDetailLength, len(got))
	}
	// 21 three-byte runes put byte 64 in the middle of the 22nd rune.
	accented := SafeDetails(map[string]any{"artifact_id": strings.Repeat("€", 30)})["artifact_id"].(string)
	if !utf8.ValidString(accented) || len(accented) != 63 {
		t.Fatalf("expected rune-aligned truncation to 63 bytes, got %d valid=%v", len(accented), utf8.ValidString(accented))
	}
	if _, ok := details["competitorUrl"]; ok {
		t.Fatalf("url detail should be dropped")
	}
	if _, ok := details["nested"]; ok {
		t.Fatalf("non-scalar detail should be dropped")
	}
	if _, ok := details["window"]; !ok {
		t.Fatalf("duration (int64 kind) should be kept")
	}
}
