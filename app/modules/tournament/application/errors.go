package tournamentservice

import "errors"

var (
	// ErrInvalidTransition is returned when a match is not in the state an operation requires.
	ErrInvalidTransition = errors.New("invalid match state transition")
	// ErrWinnerNotParticipant is returned when the reported winner did not play the match.
	ErrWinnerNotParticipant = errors.New("winner is not a participant of the match")
	// ErrInvalidPhase is returned for an unknown or non-progressive phase.
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrEventLocked is returned when an event no longer accepts changes.
	ErrEventLocked = errors.New("event is locked")
	// ErrTeamNotInEvent is returned when a team is used outside its event.
	ErrTeamNotInEvent = errors.New("team does not belong to event")
	// ErrTeamInMatch is returned when a team joins the queue while it still
	// plays an unfinished queue match.
	ErrTeamInMatch = errors.New("team is already playing a queue match")
	// ErrPhaseActive is returned when a phase is started while another is running.
	ErrPhaseActive = errors.New("another phase is active")
)
