package engine

import (
	"math/rand"
	"time"
)

type DeckVariant int

const (
	Deck36 DeckVariant = 36
	Deck52 DeckVariant = 52
	Deck54 DeckVariant = 54
)

func (v DeckVariant) Valid() bool {
	return v == Deck36 || v == Deck52 || v == Deck54
}

func (v DeckVariant) startRank() Rank {
	if v == Deck36 {
		return RankSix
	}
	return RankTwo
}

// CreateDeck builds the full card set for a variant. Only the multiset of
// cards is meaningful; callers shuffle before use.
func CreateDeck(v DeckVariant) ([]Card, error) {
	if !v.Valid() {
		return nil, Rejectf(ErrInvalidArgument, "unknown deck variant %d", int(v))
	}

	deck := make([]Card, 0, int(v))
	for _, suit := range Suits {
		for rank := v.startRank(); rank <= RankAce; rank++ {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	if v == Deck54 {
		deck = append(deck,
			Card{Suit: SuitHearts, Rank: RankJoker},
			Card{Suit: SuitSpades, Rank: RankJoker},
		)
	}
	return deck, nil
}

// Shuffle returns a uniformly permuted copy of deck. A nil rng falls back to
// a time seeded source; tests pass their own for determinism.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	out := CloneCards(deck)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal hands out len(deck)/playerCount whole rounds, one card per player per
// round. Cards that do not fill a round are returned as rest.
func Deal(deck []Card, playerCount int) (hands [][]Card, rest []Card, err error) {
	if playerCount <= 0 {
		return nil, nil, Rejectf(ErrInvalidArgument, "player count must be positive, got %d", playerCount)
	}

	perPlayer := len(deck) / playerCount
	hands = make([][]Card, playerCount)
	for i := range hands {
		hands[i] = make([]Card, 0, perPlayer)
	}

	idx := 0
	for round := 0; round < perPlayer; round++ {
		for p := 0; p < playerCount; p++ {
			hands[p] = append(hands[p], deck[idx])
			idx++
		}
	}
	rest = CloneCards(deck[idx:])
	return hands, rest, nil
}
