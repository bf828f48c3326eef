package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_DecodesServiceFormats(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	cases := map[string]string{
		"rfc3339":        `"2024-03-01T12:30:00Z"`,
		"offset":         `"2024-03-01T13:30:00+01:00"`,
		"naive":          `"2024-03-01T12:30:00"`,
		"naive fraction": `"2024-03-01T12:30:00.000000"`,
		"space":          `"2024-03-01 12:30:00"`,
	}
	for name, in := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !ts.Equal(want) {
			t.Fatalf("%s: got %v, want %v", name, ts.Time, want)
		}
	}
}

func TestTimestamp_NullAndGarbage(t *testing.T) {
	var doc struct {
		At *Timestamp `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"at":null}`), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.At != nil {
		t.Fatalf("expected nil for null, got %v", doc.At)
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatalf("expected error for unsupported timestamp")
	}
}

func TestTimestamp_MarshalZeroIsNull(t *testing.T) {
	b, err := json.Marshal(Timestamp{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("expected null, got %s", b)
	}
}
