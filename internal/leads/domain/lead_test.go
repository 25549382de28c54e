package domain

import "testing"

func TestParseStatusIsCaseInsensitive(t *testing.T) {
	got, ok := ParseStatus("  qualified ")
	if !ok || got != StatusQualified {
		t.Fatalf("expected Qualified, got %q (ok=%v)", got, ok)
	}
	if _, ok := ParseStatus("Archived"); ok {
		t.Fatal("unknown status must not parse")
	}
}

func TestCountsTowardCapacity(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified} {
		if !s.CountsTowardCapacity() {
			t.Fatalf("%s should count toward capacity", s)
		}
	}
	for _, s := range []Status{StatusUnqualified, StatusConverted} {
		if s.CountsTowardCapacity() {
			t.Fatalf("%s should not count toward capacity", s)
		}
	}
}

func TestOpenStatusesFollowCapacityRule(t *testing.T) {
	got := OpenStatuses()
	want := []string{"New", "Contacted", "Qualified"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestConvertedIsTerminal(t *testing.T) {
	if !StatusConverted.IsTerminal() {
		t.Fatal("Converted must be terminal")
	}
	if StatusConverted.CanTransitionTo(StatusNew) {
		t.Fatal("Converted must not move back to New")
	}
	if !StatusConverted.CanTransitionTo(StatusConverted) {
		t.Fatal("re-applying Converted must be allowed")
	}
	if !StatusQualified.CanTransitionTo(StatusConverted) || !StatusUnqualified.CanTransitionTo(StatusNew) {
		t.Fatal("non-terminal statuses may change freely")
	}
}

func TestFullNameAndAddress(t *testing.T) {
	lead := Lead{FirstName: " Jane", LastName: "Doe ", Country: "NL"}
	if lead.FullName() != "Jane Doe" {
		t.Fatalf("unexpected full name %q", lead.FullName())
	}
	if !lead.HasAddress() {
		t.Fatal("country alone counts as address")
	}
	if (Lead{FirstName: "Solo"}).FullName() != "Solo" {
		t.Fatal("missing last name must not leave trailing space")
	}
}
