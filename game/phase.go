package game

import (
	"fmt"
	"time"
)

type Phase int

const (
	PHASE_WAITING_FOR_PLAYERS Phase = iota
	PHASE_WAITING_FOR_START
	PHASE_NEW_ROUND
	PHASE_GAME_RUNNING
	PHASE_SHOW_WORD
)

var phaseNames = [...]string{
	PHASE_WAITING_FOR_PLAYERS: "WAITING_FOR_PLAYERS",
	PHASE_WAITING_FOR_START:   "WAITING_FOR_START",
	PHASE_NEW_ROUND:           "NEW_ROUND",
	PHASE_GAME_RUNNING:        "GAME_RUNNING",
	PHASE_SHOW_WORD:           "SHOW_WORD",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

type phaseTrigger int

const (
	TRIGGER_ROSTER_CHANGED phaseTrigger = iota
	TRIGGER_COUNTDOWN_EXPIRED
	TRIGGER_WORD_CHOSEN
	TRIGGER_ALL_GUESSED
	TRIGGER_DRAWER_LEFT
)

type phaseEvent struct {
	trigger    phaseTrigger
	rosterSize int
	capacity   int
}

type transition struct {
	to            Phase
	shuffleRoster bool
}

// nextPhase is the whole phase machine. It has no side effects; the room
// applies the returned transition from its own loop.
func nextPhase(current Phase, ev phaseEvent) (transition, bool) {
	if ev.rosterSize <= 1 {
		if current == PHASE_WAITING_FOR_PLAYERS {
			return transition{}, false
		}
		return transition{to: PHASE_WAITING_FOR_PLAYERS}, true
	}

	switch ev.trigger {
	case TRIGGER_ROSTER_CHANGED:
		switch {
		case current == PHASE_WAITING_FOR_PLAYERS:
			return transition{to: PHASE_WAITING_FOR_START, shuffleRoster: true}, true
		case current == PHASE_WAITING_FOR_START && ev.rosterSize >= ev.capacity:
			return transition{to: PHASE_NEW_ROUND, shuffleRoster: true}, true
		}

	case TRIGGER_COUNTDOWN_EXPIRED:
		switch current {
		case PHASE_WAITING_FOR_START:
			return transition{to: PHASE_NEW_ROUND}, true
		case PHASE_NEW_ROUND:
			return transition{to: PHASE_GAME_RUNNING}, true
		case PHASE_GAME_RUNNING:
			return transition{to: PHASE_SHOW_WORD}, true
		case PHASE_SHOW_WORD:
			return transition{to: PHASE_NEW_ROUND}, true
		}

	case TRIGGER_WORD_CHOSEN:
		if current == PHASE_NEW_ROUND {
			return transition{to: PHASE_GAME_RUNNING}, true
		}

	case TRIGGER_ALL_GUESSED:
		if current == PHASE_GAME_RUNNING {
			return transition{to: PHASE_NEW_ROUND}, true
		}

	case TRIGGER_DRAWER_LEFT:
		switch current {
		case PHASE_NEW_ROUND, PHASE_GAME_RUNNING, PHASE_SHOW_WORD:
			return transition{to: PHASE_NEW_ROUND}, true
		}
	}

	return transition{}, false
}

func countdownFor(phase Phase, c RoomConfigs) time.Duration {
	switch phase {
	case PHASE_WAITING_FOR_START:
		return c.WaitingForStart
	case PHASE_NEW_ROUND:
		return c.NewRound
	case PHASE_GAME_RUNNING:
		return c.GameRunning
	case PHASE_SHOW_WORD:
		return c.ShowWord
	}
	return 0
}
