package audit

import "testing"

func TestDescribeKnownEvent(t *testing.T) {
	e := Entry{Module: "defguard", Event: "user_created", Username: "alice"}
	got := Describe(e)
	want := "alice created a user"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestDescribeUnknownEventFallsBack(t *testing.T) {
	e := Entry{Module: "mystery", Event: "something_happened"}
	got := Describe(e)
	want := "mystery: something_happened"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
