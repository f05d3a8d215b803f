package lobby

import (
	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

// roomView projects the room for viewer. Only the viewer's own hand is ever
// copied out; other players' counts depend on ShowCardCount. Viewer 0 sees
// no hand at all.
func (l *Lobby) roomView(viewer int64) wire.RoomView {
	r := l.room
	v := wire.RoomView{
		ID:            r.ID,
		Name:          r.Name,
		MaxPlayers:    r.MaxPlayers,
		Deck:          r.Deck,
		ShowCardCount: r.ShowCardCount,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		CreatedBy:     r.CreatedBy,
		Players:       make([]wire.PlayerView, 0, len(r.Seats)),
	}
	for _, s := range r.Seats {
		pv := wire.PlayerView{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			Position:    s.Position,
			Status:      s.Status,
		}
		if l.game != nil {
			n := len(s.Hand)
			switch {
			case viewer != 0 && s.UserID == viewer:
				pv.CardCount = &n
				pv.Hand = engine.CloneCards(s.Hand)
			case r.ShowCardCount:
				pv.CardCount = &n
			}
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

func (l *Lobby) gameView(viewer int64) wire.GameView {
	v := wire.GameView{Room: l.roomView(viewer)}
	g := l.game
	if g == nil {
		return v
	}
	v.Started = true
	v.Phase = g.Phase
	v.CurrentPlayerID = g.CurrentPlayer
	v.CardsInDeck = len(g.DrawPile)
	v.CardsInDiscard = len(g.DiscardPile)
	v.Bank = g.Bank
	v.LastMoveAt = g.LastMoveAt
	v.MoveCount = len(g.Moves)
	v.WinnerID = g.WinnerID
	if last, ok := g.lastMove(); ok {
		mv := moveView(*last)
		v.LastMove = &mv
	}
	return v
}

// moveView hides which cards were played; only the count and the claim are
// public until a challenge reveals them.
func moveView(m Move) wire.MoveView {
	return wire.MoveView{
		Seq:         m.Seq,
		PlayerID:    m.PlayerID,
		TargetID:    m.TargetID,
		CardCount:   len(m.Cards),
		ClaimedRank: m.ClaimedRank,
		Outcome:     m.Outcome,
		At:          m.At,
	}
}
