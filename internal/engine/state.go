package engine

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomFinished   RoomStatus = "finished"
	RoomCancelled  RoomStatus = "cancelled"
)

var roomTransitions = map[RoomStatus][]RoomStatus{
	RoomWaiting:    {RoomInProgress, RoomCancelled},
	RoomInProgress: {RoomFinished},
}

// CanTransition reports whether a room may move from one status to another.
// Finished and Cancelled are terminal.
func CanTransition(from, to RoomStatus) bool {
	for _, next := range roomTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Phase string

const (
	PhaseDealing  Phase = "dealing"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type Outcome string

const (
	OutcomeContinue    Outcome = "continue"
	OutcomeBelieved    Outcome = "believed"
	OutcomeNotBelieved Outcome = "not_believed"
	OutcomeRoundEnd    Outcome = "round_end"
	OutcomeGameEnd     Outcome = "game_end"
)
