package domain

import "time"

// Phase is the lifecycle stage of the single process-wide session.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Participant is a connected player. ID is an opaque connection token,
// stable for the lifetime of the connection.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Answered bool   `json:"-"`
}

// Question is the session-scoped projection of a stored question:
// only what the round loop needs to reveal and judge it.
type Question struct {
	ID        string
	Statement string
	Answer    string
}

// StoredQuestion is the full record kept by the question store,
// including the tutoring fields the session never reads.
type StoredQuestion struct {
	ID                  string    `json:"id"`
	Statement           string    `json:"statement"`
	Answer              string    `json:"answer"`
	Correction          string    `json:"correction,omitempty"`
	SimplifiedStatement string    `json:"simplified_statement,omitempty"`
	Hint                string    `json:"hint,omitempty"`
	CreateTime          time.Time `json:"create_time"`
}
