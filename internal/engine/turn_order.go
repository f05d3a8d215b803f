package engine

import "sort"

type PlayerStatus string

const (
	PlayerWaiting      PlayerStatus = "waiting"
	PlayerPlaying      PlayerStatus = "playing"
	PlayerEliminated   PlayerStatus = "eliminated"
	PlayerWinner       PlayerStatus = "winner"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Seat is a player's slot in a room. Position is assigned at join time and
// never reused as a slice index: leaving before the game starts may leave
// gaps.
type Seat struct {
	UserID      int64        `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Position    int          `json:"position"`
	Status      PlayerStatus `json:"status"`
	Hand        []Card       `json:"hand,omitempty"`
}

func (s Seat) Clone() Seat {
	s.Hand = CloneCards(s.Hand)
	return s
}

func CloneSeats(seats []Seat) []Seat {
	out := make([]Seat, len(seats))
	for i, s := range seats {
		out[i] = s.Clone()
	}
	return out
}

// ActiveSeats returns the Playing seats ordered by position.
func ActiveSeats(seats []Seat) []Seat {
	active := make([]Seat, 0, len(seats))
	for _, s := range seats {
		if s.Status == PlayerPlaying {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Position < active[j].Position })
	return active
}

// NextPlayer returns whose turn follows current. With one or no active seat
// current is returned unchanged; if current is no longer active play resumes
// at the first active seat.
func NextPlayer(seats []Seat, current int64) int64 {
	active := ActiveSeats(seats)
	if len(active) <= 1 {
		return current
	}
	for i, s := range active {
		if s.UserID == current {
			return active[(i+1)%len(active)].UserID
		}
	}
	return active[0].UserID
}

func IsGameEnded(seats []Seat) bool {
	_, ok := WinnerID(seats)
	return ok
}

// WinnerID is the first Playing seat, by position, with an empty hand.
func WinnerID(seats []Seat) (int64, bool) {
	for _, s := range ActiveSeats(seats) {
		if len(s.Hand) == 0 {
			return s.UserID, true
		}
	}
	return 0, false
}

// FewestCards picks the Playing seat holding the fewest cards, ties broken
// by position.
func FewestCards(seats []Seat) (int64, bool) {
	active := ActiveSeats(seats)
	if len(active) == 0 {
		return 0, false
	}
	best := active[0]
	for _, s := range active[1:] {
		if len(s.Hand) < len(best.Hand) {
			best = s
		}
	}
	return best.UserID, true
}

// FindSeat returns the slice index of userID's seat.
func FindSeat(seats []Seat, userID int64) (int, bool) {
	for i, s := range seats {
		if s.UserID == userID {
			return i, true
		}
	}
	return -1, false
}
