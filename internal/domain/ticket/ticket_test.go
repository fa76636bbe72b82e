package ticket

import "testing"

func TestCanTransitionToForwardOnly(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusConfirmed, true},
		{StatusOpen, StatusClaimed, true},
		{StatusOpen, StatusClosed, true},
		{StatusConfirmed, StatusClaimed, true},
		{StatusConfirmed, StatusClosed, true},
		{StatusClaimed, StatusClosed, true},
		{StatusConfirmed, StatusOpen, false},
		{StatusClaimed, StatusConfirmed, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusConfirmed, false},
		{StatusClosed, StatusClaimed, false},
		{StatusClosed, StatusClosed, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tc := range cases {
		tk := &Ticket{Status: tc.from}
		if got := tk.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAtLeast(t *testing.T) {
	tk := &Ticket{Status: StatusClaimed}
	if !tk.AtLeast(StatusConfirmed) {
		t.Fatal("CLAIMED should satisfy AtLeast(CONFIRMED)")
	}
	if tk.AtLeast(StatusClosed) {
		t.Fatal("CLAIMED should not satisfy AtLeast(CLOSED)")
	}
}

func TestHasParticipant(t *testing.T) {
	ps := []string{"1", "2"}
	if !HasParticipant(ps, "2") {
		t.Fatal("expected membership")
	}
	if HasParticipant(ps, "3") {
		t.Fatal("unexpected membership")
	}
}
