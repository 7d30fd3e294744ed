package domain

const (
	EventNameRosterUpdated    = "roster.updated"
	EventNameQuestionRevealed = "question.revealed"
	EventNameRoundResult      = "round.result"
	EventNameSessionError     = "session.error"
	EventNameSessionEnded     = "session.ended"
	EventNameSessionReset     = "session.reset"
)

// EventRosterUpdated is broadcast after every registry mutation.
type EventRosterUpdated struct {
	Participants []Participant `json:"participants"`
}

func (EventRosterUpdated) Name() string { return EventNameRosterUpdated }

// EventQuestionRevealed opens the answer window for one question.
// The correct answer is deliberately absent.
type EventQuestionRevealed struct {
	QuestionID string `json:"id"`
	Statement  string `json:"statement"`
	Ordinal    int    `json:"question_number"`
	Total      int    `json:"total_questions"`
	DurationMs int64  `json:"duration_ms"`
}

func (EventQuestionRevealed) Name() string { return EventNameQuestionRevealed }

// EventRoundResult closes a round: the correct answer plus the roster
// snapshot taken under the same serialization as the final scoring.
type EventRoundResult struct {
	CorrectAnswer string        `json:"correct_answer"`
	Participants  []Participant `json:"participants"`
}

func (EventRoundResult) Name() string { return EventNameRoundResult }

type EventSessionError struct {
	Message string `json:"message"`
}

func (EventSessionError) Name() string { return EventNameSessionError }

type EventSessionEnded struct {
	Participants []Participant `json:"participants"`
}

func (EventSessionEnded) Name() string { return EventNameSessionEnded }

type EventSessionReset struct {
	Participants []Participant `json:"participants"`
}

func (EventSessionReset) Name() string { return EventNameSessionReset }
