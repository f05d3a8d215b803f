package lobby

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/wire"
)

var (
	errGameNotFound   = engine.Reject(engine.ErrNotFound, "Game not found")
	errGameOver       = engine.Reject(engine.ErrInvalidState, "Game is over")
	errNotYourMove    = engine.Reject(engine.ErrUnauthorized, "Not your move")
	errPlayerNotFound = engine.Reject(engine.ErrNotFound, "Player not found")
	errInvalidMove    = engine.Reject(engine.ErrInvalidArgument, "Invalid move")
)

func (l *Lobby) join(u User) (JoinResult, error) {
	if l.room.Status != engine.RoomWaiting {
		return JoinResult{}, engine.Reject(engine.ErrInvalidState, "Game has already started")
	}
	if _, ok := engine.FindSeat(l.room.Seats, u.ID); ok {
		return JoinResult{Message: "You are already in the room", Room: l.roomView(u.ID)}, nil
	}
	if len(l.room.Seats) >= l.room.MaxPlayers {
		return JoinResult{}, engine.Reject(engine.ErrInvalidState, "Room is full")
	}

	seat := engine.Seat{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Position:    l.room.nextPosition(),
		Status:      engine.PlayerWaiting,
	}
	l.room.addSeat(seat)
	l.log.Info("player joined", zap.Int64("user_id", u.ID), zap.Int("position", seat.Position))

	view := l.roomView(u.ID)
	l.emitRoom(wire.PlayerJoinedRoom{
		RoomID:      l.room.ID,
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Position:    seat.Position,
		Timestamp:   l.now(),
	})
	l.emitLobby(wire.RoomUpdated{Room: view})
	return JoinResult{Message: "Joined room", Room: view}, nil
}

// leave removes a seat before the game and disconnects it during one. The
// seat stays in place once dealt so positions and hands stay consistent.
func (l *Lobby) leave(userID int64) (bool, error) {
	i, ok := engine.FindSeat(l.room.Seats, userID)
	if !ok {
		return false, nil
	}

	switch l.room.Status {
	case engine.RoomWaiting:
		l.room.removeSeat(i)
		l.log.Info("player left", zap.Int64("user_id", userID))
		l.emitRoom(wire.PlayerLeftRoom{RoomID: l.room.ID, UserID: userID, Timestamp: l.now()})
		if len(l.room.Seats) == 0 {
			l.remove()
			return true, nil
		}
		l.emitLobby(wire.RoomUpdated{Room: l.roomView(0)})
		return true, nil

	case engine.RoomInProgress:
		if l.room.Seats[i].Status != engine.PlayerPlaying {
			return false, nil
		}
		// successor is taken while the leaver is still in the rotation
		next := engine.NextPlayer(l.room.Seats, userID)
		l.room.Seats[i].Status = engine.PlayerDisconnected
		l.log.Info("player disconnected", zap.Int64("user_id", userID))
		l.emitRoom(wire.PlayerLeftRoom{RoomID: l.room.ID, UserID: userID, Disconnected: true, Timestamp: l.now()})

		if l.game != nil && l.game.Phase == engine.PhasePlaying {
			if l.game.CurrentPlayer == userID {
				l.game.CurrentPlayer = next
			}
			if active := engine.ActiveSeats(l.room.Seats); len(active) == 1 {
				l.endGame(active[0].UserID, "Opponents left the game")
				return true, nil
			}
		}
		l.broadcastState(false)
		return true, nil

	default:
		return false, nil
	}
}

func (l *Lobby) remove() {
	l.removed = true
	l.log.Info("room removed", zap.String("status", string(l.room.Status)))
	l.emitLobby(wire.RoomDeleted{RoomID: l.room.ID})
}

func (l *Lobby) startGame(by int64) error {
	if _, ok := engine.FindSeat(l.room.Seats, by); !ok {
		return errPlayerNotFound
	}
	if l.room.Status != engine.RoomWaiting || l.game != nil {
		return engine.Reject(engine.ErrInvalidState, "Game has already started")
	}
	if len(l.room.Seats) < 2 {
		return engine.Reject(engine.ErrInvalidState, "Not enough players")
	}
	if len(l.room.Seats) < engine.MinPlayers {
		return engine.Rejectf(engine.ErrInvalidState, "At least %d players are required", engine.MinPlayers)
	}

	deck, err := engine.CreateDeck(l.room.Deck)
	if err != nil {
		return err
	}
	now := l.now()
	g := &GameState{
		RoomID:    l.room.ID,
		Phase:     engine.PhaseDealing,
		StartedAt: now,
	}

	hands, rest, err := engine.Deal(engine.Shuffle(deck, l.rng), len(l.room.Seats))
	if err != nil {
		return err
	}
	// Seats are kept in position order, so hands[i] belongs to Seats[i].
	for i := range l.room.Seats {
		l.room.Seats[i].Hand = hands[i]
		l.room.Seats[i].Status = engine.PlayerPlaying
	}

	g.DrawPile = rest
	g.DiscardPile = []engine.Card{}
	g.CurrentPlayer = l.room.Seats[0].UserID
	g.Phase = engine.PhasePlaying
	g.LastMoveAt = now
	l.game = g
	l.room.Status = engine.RoomInProgress

	l.log.Info("game started",
		zap.Int("players", len(l.room.Seats)),
		zap.Int("deck", int(l.room.Deck)),
		zap.Int("draw_pile", len(rest)))

	l.broadcastState(true)
	l.emitLobby(wire.RoomUpdated{Room: l.roomView(0)})
	return nil
}

func (l *Lobby) makeMove(playerID int64, req MoveRequest) (MoveResult, error) {
	g := l.game
	if g == nil {
		return MoveResult{}, errGameNotFound
	}
	if g.Phase == engine.PhaseFinished {
		return MoveResult{}, errGameOver
	}
	if g.CurrentPlayer != playerID {
		return MoveResult{}, errNotYourMove
	}
	i, ok := engine.FindSeat(l.room.Seats, playerID)
	if !ok {
		return MoveResult{}, errPlayerNotFound
	}
	seat := &l.room.Seats[i]
	if !engine.IsValidMove(seat.Hand, req.Cards, req.ClaimedRank) {
		return MoveResult{}, errInvalidMove
	}

	target := req.TargetID
	if target == 0 {
		target = engine.NextPlayer(l.room.Seats, playerID)
	} else if _, ok := engine.FindSeat(l.room.Seats, target); !ok || target == playerID {
		return MoveResult{}, errInvalidMove
	}

	hand, _ := engine.RemoveCards(seat.Hand, req.Cards)
	seat.Hand = hand
	g.DiscardPile = append(g.DiscardPile, req.Cards...)

	now := l.now()
	g.Moves = append(g.Moves, Move{
		Seq:         len(g.Moves) + 1,
		PlayerID:    playerID,
		TargetID:    target,
		Cards:       engine.CloneCards(req.Cards),
		ClaimedRank: req.ClaimedRank,
		Outcome:     engine.OutcomeContinue,
		At:          now,
	})
	l.log.Debug("move made",
		zap.Int64("user_id", playerID),
		zap.Int("cards", len(req.Cards)),
		zap.Stringer("claimed", req.ClaimedRank))

	move := &g.Moves[len(g.Moves)-1]
	if winner, ended := engine.WinnerID(l.room.Seats); ended {
		move.Outcome = engine.OutcomeGameEnd
		l.emitRoom(wire.MoveCompleted{RoomID: l.room.ID, Move: moveView(*move), GameEnded: true, Timestamp: now})
		l.endGame(winner, "Game is over")
		return MoveResult{
			Message:   "Game is over",
			State:     l.gameView(playerID),
			GameEnded: true,
			WinnerID:  winner,
		}, nil
	}

	g.CurrentPlayer = engine.NextPlayer(l.room.Seats, g.CurrentPlayer)
	g.LastMoveAt = now

	l.emitRoom(wire.MoveCompleted{RoomID: l.room.ID, Move: moveView(*move), NextID: g.CurrentPlayer, Timestamp: now})
	l.broadcastState(false)
	return MoveResult{Message: "Move is made", State: l.gameView(playerID)}, nil
}

// challenge resolves the most recent move. Believing changes nothing but
// the outcome. Not believing reveals the cards: whoever was wrong takes the
// whole discard pile into their hand.
func (l *Lobby) challenge(challengerID int64, believe bool) (ChallengeResult, error) {
	g := l.game
	if g == nil {
		return ChallengeResult{}, errGameNotFound
	}
	if g.Phase == engine.PhaseFinished {
		return ChallengeResult{}, errGameOver
	}
	last, ok := g.lastMove()
	if !ok {
		return ChallengeResult{}, engine.Reject(engine.ErrInvalidState, "No moves to check")
	}
	ci, ok := engine.FindSeat(l.room.Seats, challengerID)
	if !ok {
		return ChallengeResult{}, errPlayerNotFound
	}
	if l.room.Seats[ci].Status != engine.PlayerPlaying {
		return ChallengeResult{}, engine.Reject(engine.ErrUnauthorized, "You are not playing in this game")
	}
	if last.PlayerID == challengerID {
		return ChallengeResult{}, engine.Reject(engine.ErrUnauthorized, "Cannot check your own move")
	}
	if last.Outcome != engine.OutcomeContinue {
		return ChallengeResult{}, engine.Reject(engine.ErrInvalidState, "Move already checked")
	}

	now := l.now()
	out := ChallengeResult{}
	ev := wire.BelieveResult{RoomID: l.room.ID, ChallengerID: challengerID, Believe: believe, MoveSeq: last.Seq, Timestamp: now}

	if believe {
		last.Outcome = engine.OutcomeBelieved
		out.Message = "Believed"
	} else {
		last.Outcome = engine.OutcomeNotBelieved
		res := engine.ResolveChallenge(last.Cards, last.ClaimedRank)
		loser := last.PlayerID
		if res.CardsMatchClaim {
			loser = challengerID
		}
		li, _ := engine.FindSeat(l.room.Seats, loser)
		picked := len(g.DiscardPile)
		l.room.Seats[li].Hand = append(l.room.Seats[li].Hand, g.DiscardPile...)
		g.DiscardPile = []engine.Card{}

		out.Message = "Not believed. " + res.Description()
		out.Result = &res
		out.PickedUpBy = loser
		ev.Result = &res
		ev.PickedUpBy = loser
		ev.PickedUp = picked
		l.log.Info("challenge resolved",
			zap.Int64("challenger_id", challengerID),
			zap.Bool("claim_true", res.CardsMatchClaim),
			zap.Int64("picked_up_by", loser),
			zap.Int("cards", picked))
	}
	out.Outcome = last.Outcome

	l.emitRoom(ev)
	l.broadcastState(false)
	out.State = l.gameView(challengerID)
	return out, nil
}

func (l *Lobby) endGameCmd(winnerID int64) error {
	g := l.game
	if g == nil {
		return errGameNotFound
	}
	if g.Phase == engine.PhaseFinished {
		return nil
	}
	if winnerID == 0 {
		id, ok := engine.FewestCards(l.room.Seats)
		if !ok {
			return engine.Reject(engine.ErrInvalidState, "No players left")
		}
		winnerID = id
	} else if _, ok := engine.FindSeat(l.room.Seats, winnerID); !ok {
		return errPlayerNotFound
	}
	l.endGame(winnerID, "Game ended")
	return nil
}

// endGame moves the game and room into their terminal states and hands the
// result to the write-behind worker.
func (l *Lobby) endGame(winnerID int64, msg string) {
	g := l.game
	if g.Phase == engine.PhaseFinished {
		return
	}
	now := l.now()
	g.Phase = engine.PhaseFinished
	g.WinnerID = winnerID
	g.LastMoveAt = now
	l.room.Status = engine.RoomFinished

	for i := range l.room.Seats {
		s := &l.room.Seats[i]
		switch {
		case s.UserID == winnerID:
			s.Status = engine.PlayerWinner
		case s.Status == engine.PlayerPlaying:
			s.Status = engine.PlayerEliminated
		}
	}
	l.log.Info("game ended", zap.Int64("winner_id", winnerID), zap.Int("moves", len(g.Moves)))

	if l.results != nil {
		l.results.Submit(l.record())
	}
	l.emitRoom(wire.GameEnded{RoomID: l.room.ID, WinnerID: winnerID, Message: msg, Timestamp: now})
	l.broadcastState(false)
	l.emitLobby(wire.RoomUpdated{Room: l.roomView(0)})
}

func (l *Lobby) record() results.GameRecord {
	g := l.game
	rec := results.GameRecord{
		RoomID:    l.room.ID,
		RoomName:  l.room.Name,
		Deck:      l.room.Deck,
		WinnerID:  g.WinnerID,
		StartedAt: g.StartedAt,
		EndedAt:   g.LastMoveAt,
	}
	for _, s := range l.room.Seats {
		won := s.UserID == g.WinnerID
		rec.Participants = append(rec.Participants, results.Participant{
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			Position:    s.Position,
			Won:         won,
			CardsLeft:   len(s.Hand),
			CoinsDelta:  engine.CoinsDelta(won),
		})
	}
	for _, m := range g.Moves {
		rec.Moves = append(rec.Moves, results.MoveRecord{
			Seq:         m.Seq,
			PlayerID:    m.PlayerID,
			TargetID:    m.TargetID,
			Cards:       engine.CloneCards(m.Cards),
			ClaimedRank: m.ClaimedRank,
			Outcome:     m.Outcome,
			At:          m.At,
		})
	}
	return rec
}

func (l *Lobby) setStatus(st engine.RoomStatus) error {
	if !engine.CanTransition(l.room.Status, st) {
		return engine.Rejectf(engine.ErrInvalidState, "Cannot change room status from %s to %s", l.room.Status, st)
	}
	l.room.Status = st
	l.log.Info("room status updated", zap.String("status", string(st)))
	if st == engine.RoomCancelled {
		l.remove()
		return nil
	}
	l.emitLobby(wire.RoomUpdated{Room: l.roomView(0)})
	return nil
}

func (l *Lobby) timeoutTurn(expected int64) error {
	g := l.game
	if g == nil {
		return errGameNotFound
	}
	if g.Phase == engine.PhaseFinished {
		return errGameOver
	}
	if g.CurrentPlayer != expected {
		// stale timer: the player already moved
		return engine.Reject(engine.ErrInvalidState, "Turn already advanced")
	}
	g.CurrentPlayer = engine.NextPlayer(l.room.Seats, expected)
	g.LastMoveAt = l.now()
	l.log.Info("turn timed out", zap.Int64("user_id", expected), zap.Int64("next_id", g.CurrentPlayer))
	l.broadcastState(false)
	return nil
}
