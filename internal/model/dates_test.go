package model

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRangesOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		a1, a2, b1, b2 string
		want           bool
	}{
		{"disjoint before", "2024-06-01", "2024-06-05", "2024-06-06", "2024-06-08", false},
		{"shared boundary day", "2024-06-01", "2024-06-05", "2024-06-05", "2024-06-08", true},
		{"contained", "2024-06-01", "2024-06-10", "2024-06-03", "2024-06-04", true},
		{"containing", "2024-06-03", "2024-06-04", "2024-06-01", "2024-06-10", true},
		{"same day ranges", "2024-06-01", "2024-06-01", "2024-06-01", "2024-06-01", true},
		{"disjoint after", "2024-06-10", "2024-06-12", "2024-06-01", "2024-06-09", false},
	}
	for _, tc := range tests {
		got := RangesOverlap(date(tc.a1), date(tc.a2), date(tc.b1), date(tc.b2))
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		// the predicate is symmetric
		if back := RangesOverlap(date(tc.b1), date(tc.b2), date(tc.a1), date(tc.a2)); back != got {
			t.Errorf("%s: overlap is not symmetric", tc.name)
		}
	}
}

func TestPrice(t *testing.T) {
	t.Parallel()

	if got := Price(10000, date("2024-06-01"), date("2024-06-04")); got != 30000 {
		t.Fatalf("expected 30000 for three nights, got %d", got)
	}
	if got := Price(10000, date("2024-06-01"), date("2024-06-01")); got != 10000 {
		t.Fatalf("expected same-day stay to bill one night, got %d", got)
	}
	if got := Nights(date("2024-02-28"), date("2024-03-01")); got != 2 {
		t.Fatalf("expected 2 nights across leap day, got %d", got)
	}
}

func TestDayNormalisesTime(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 6, 1, 23, 59, 0, 0, time.FixedZone("X", -5*3600))
	got := Day(in)
	if !got.Equal(date("2024-06-01")) {
		t.Fatalf("expected 2024-06-01, got %v", got)
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCancelled}: true,
	}
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
	if _, ok := ParseStatus("PENDIENTE"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
	if s, ok := ParseStatus("CONFIRMED"); !ok || s != StatusConfirmed {
		t.Fatalf("expected CONFIRMED to parse")
	}
}
