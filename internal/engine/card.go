package engine

import "strconv"

type Suit int

const (
	SuitHearts Suit = iota
	SuitDiamonds
	SuitClubs
	SuitSpades
)

var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

func (s Suit) String() string {
	switch s {
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	case SuitSpades:
		return "♠"
	default:
		return "?"
	}
}

type Rank int

const (
	RankTwo Rank = iota + 2
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
	RankJoker
)

// Valid reports whether r is one of the defined ranks, Joker included.
func (r Rank) Valid() bool {
	return r >= RankTwo && r <= RankJoker
}

func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	case RankJoker:
		return "JK"
	}
	if r >= RankTwo && r <= RankTen {
		return strconv.Itoa(int(r))
	}
	return "?"
}

// Card is a value type. Two cards are equal when suit and rank match; the
// suit of a Joker carries no meaning in play.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) IsJoker() bool { return c.Rank == RankJoker }

func (c Card) String() string {
	if c.IsJoker() {
		return RankJoker.String()
	}
	return c.Rank.String() + c.Suit.String()
}
