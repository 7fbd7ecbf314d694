package dates

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRoundTrip(t *testing.T) {
	d, err := Parse("2025-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.String(); got != "2025-01-01" {
		t.Fatalf("expected 2025-01-01 got %s", got)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := []string{"", "2025-1-1", "01-01-2025", "2025-13-01", "2025-01-32", "not-a-date", "2025-01-01T10:00:00Z"}
	for _, input := range cases {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestFromTimeTruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 local on Jan 2 is still Jan 1 in UTC.
	d := FromTime(time.Date(2025, time.January, 2, 2, 30, 0, 0, loc))
	if got := d.String(); got != "2025-01-01" {
		t.Fatalf("expected 2025-01-01 got %s", got)
	}
}

func TestCompare(t *testing.T) {
	early, _ := Parse("2025-01-01")
	late, _ := Parse("2025-02-01")

	if early.Compare(late) != -1 {
		t.Fatal("expected early < late")
	}
	if late.Compare(early) != 1 {
		t.Fatal("expected late > early")
	}
	if early.Compare(early) != 0 {
		t.Fatal("expected equal dates to compare as 0")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d, _ := Parse("2025-06-15")

	encoded, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `"2025-06-15"` {
		t.Fatalf("unexpected encoding %s", encoded)
	}

	var decoded Date
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != d {
		t.Fatalf("round trip mismatch: %v != %v", decoded, d)
	}

	if err := json.Unmarshal([]byte(`"garbage"`), &decoded); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestIsZero(t *testing.T) {
	var zero Date
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	d, _ := Parse("2025-01-01")
	if d.IsZero() {
		t.Fatal("parsed date should not report IsZero")
	}
}
