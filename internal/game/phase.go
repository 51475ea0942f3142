package game

import "fmt"

// Phase is the closed set of screen/round states a session moves through.
// Transitions go through Transition so an invalid change is an error rather
// than a silent no-op on a string tag.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseWaiting
	PhaseStarting
	PhasePlay
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "LOBBY"
	case PhaseWaiting:
		return "WAITING"
	case PhaseStarting:
		return "STARTING"
	case PhasePlay:
		return "PLAY"
	case PhaseGameOver:
		return "GAME_OVER"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// validTransitions lists the allowed edges. STARTING exists only in the click
// battle (the cosmetic 3-2-1 countdown); color match goes WAITING -> PLAY
// directly. GAME_OVER -> LOBBY is the only outward edge: a rematch restarts
// the whole session, it never resumes the room.
var validTransitions = map[Phase][]Phase{
	PhaseLobby:    {PhaseWaiting},
	PhaseWaiting:  {PhaseStarting, PhasePlay},
	PhaseStarting: {PhasePlay},
	PhasePlay:     {PhaseGameOver},
	PhaseGameOver: {PhaseLobby},
}

// Transition returns the new phase, or an error if the edge is not allowed.
func (p Phase) Transition(to Phase) (Phase, error) {
	for _, next := range validTransitions[p] {
		if next == to {
			return to, nil
		}
	}
	return p, fmt.Errorf("invalid phase transition %s -> %s", p, to)
}
