package util

import (
	"testing"
	"time"
)

func TestParseYMD(t *testing.T) {
	got, ok := ParseYMD("20241010")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.October || got.Day() != 10 {
		t.Fatalf("unexpected date %v", got)
	}
	if FormatYMD(got) != "20241010" {
		t.Fatalf("round trip mismatch %s", FormatYMD(got))
	}
}

func TestParseYMDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "2024-10-10", "2024101", "abcdefgh"} {
		if _, ok := ParseYMD(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestLookbackRange(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	from, to := LookbackRange(now, 100)
	if to != "20240301" {
		t.Fatalf("unexpected to %s", to)
	}
	if from != "20231122" {
		t.Fatalf("unexpected from %s", from)
	}
}

func TestParseFloat(t *testing.T) {
	if v, ok := ParseFloat(" 1,234.5 "); !ok || v != 1234.5 {
		t.Fatalf("unexpected %v %v", v, ok)
	}
	if _, ok := ParseFloat(""); ok {
		t.Fatalf("empty should not parse")
	}
	if ParseFloatPtr("x") != nil {
		t.Fatalf("expected nil")
	}
	if ParseInt64Default("12a", 7) != 7 {
		t.Fatalf("expected default")
	}
}
