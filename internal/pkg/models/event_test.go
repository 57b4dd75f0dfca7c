package models

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to EventStatus
		want     bool
	}{
		{StatusScheduled, StatusLive, true},
		{StatusScheduled, StatusFinished, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusPostponed, true},
		{StatusLive, StatusFinished, true},
		{StatusFinished, StatusLive, true}, // score correction reopens
		{StatusLive, StatusScheduled, false},
		{StatusFinished, StatusScheduled, false},
		{StatusLive, StatusCancelled, false},
		{StatusCancelled, StatusLive, false},
		{StatusPostponed, StatusScheduled, false},
		{StatusLive, StatusLive, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for status, want := range map[EventStatus]bool{
		StatusScheduled: false,
		StatusLive:      false,
		StatusFinished:  false,
		StatusCancelled: true,
		StatusPostponed: true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("Terminal(%s) = %v, want %v", status, got, want)
		}
	}
}
