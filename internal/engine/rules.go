package engine

import "time"

const (
	MinPlayers        = 3
	MaxPlayers        = 6
	MinRoomNameLength = 3
	MaxRoomNameLength = 100

	DefaultCoins  = 1000
	DefaultRating = 1000

	EntryFee        = 10
	WinnerReward    = 50
	RatingWinBonus  = 25
	RatingLossBonus = -10
)

const (
	MoveTimeout     = time.Minute
	GameTimeout     = time.Hour
	RoomWaitTimeout = 10 * time.Minute
)

// CoinsDelta is the settlement for one participant of a finished game.
func CoinsDelta(won bool) int64 {
	if won {
		return WinnerReward - EntryFee
	}
	return -EntryFee
}

type ChallengeResult struct {
	CardsMatchClaim bool   `json:"cards_match_claim"`
	Revealed        []Card `json:"cards_revealed"`
	ClaimedRank     Rank   `json:"claimed_rank"`
}

func (r ChallengeResult) Description() string {
	if r.CardsMatchClaim {
		return "Player was telling the truth"
	}
	return "Player was lying"
}

// IsValidMove reports whether cards can be played from hand under the
// claimed rank. Each physical card in hand satisfies at most one played card.
func IsValidMove(hand, cards []Card, claimed Rank) bool {
	if len(cards) == 0 || !claimed.Valid() {
		return false
	}
	_, ok := RemoveCards(hand, cards)
	return ok
}

// RemoveCards returns hand minus exactly one instance of every card in
// cards. ok is false if some card has no remaining instance, in which case
// the returned hand is nil.
func RemoveCards(hand, cards []Card) ([]Card, bool) {
	left := CloneCards(hand)
	for _, c := range cards {
		i := indexOf(left, c)
		if i < 0 {
			return nil, false
		}
		left = append(left[:i], left[i+1:]...)
	}
	return left, true
}

// ResolveChallenge checks revealed cards against the claim. Jokers satisfy
// any claim.
func ResolveChallenge(revealed []Card, claimed Rank) ChallengeResult {
	match := true
	for _, c := range revealed {
		if c.Rank != claimed && !c.IsJoker() {
			match = false
			break
		}
	}
	return ChallengeResult{
		CardsMatchClaim: match,
		Revealed:        CloneCards(revealed),
		ClaimedRank:     claimed,
	}
}

func indexOf(cards []Card, c Card) int {
	for i, have := range cards {
		if have == c {
			return i
		}
	}
	return -1
}

func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
