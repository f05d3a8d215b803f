package engine

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to RoomStatus
		want     bool
	}{
		{RoomWaiting, RoomInProgress, true},
		{RoomWaiting, RoomCancelled, true},
		{RoomInProgress, RoomFinished, true},
		{RoomWaiting, RoomFinished, false},
		{RoomInProgress, RoomWaiting, false},
		{RoomInProgress, RoomCancelled, false},
		{RoomFinished, RoomWaiting, false},
		{RoomFinished, RoomInProgress, false},
		{RoomCancelled, RoomWaiting, false},
		{RoomWaiting, RoomWaiting, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s): got %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}
