package game

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/event"
	"github.com/triviahub/triviad/internal/registry"
	"github.com/triviahub/triviad/internal/telemetry"
)

const (
	defaultAnswerWindow = 15 * time.Second
	defaultIntermission = 5 * time.Second
	defaultResetDelay   = 20 * time.Second

	minParticipants = 2

	basePoints  = 100
	floorPoints = 10
)

// QuestionSupply is the narrow interface the session consumes from the
// question store.
type QuestionSupply interface {
	FetchAll(ctx context.Context) ([]domain.Question, error)
}

type Config struct {
	EventBus *event.Bus
	Supply   QuestionSupply

	// Clock defaults to the real clock; tests inject a fake one.
	Clock clockwork.Clock
	// Rand seeds the question shuffle; defaults to a time-seeded source.
	Rand *rand.Rand

	AnswerWindow time.Duration
	Intermission time.Duration
	ResetDelay   time.Duration
}

// Service is the session coordinator. Exactly one session exists per
// process; every mutation, including timer expiry, is serialized through
// the service mutex, and broadcasts are published under that same lock so
// subscribers observe them in mutation order.
type Service struct {
	eb     *event.Bus
	supply QuestionSupply
	clock  clockwork.Clock
	rnd    *rand.Rand

	window       time.Duration
	intermission time.Duration
	resetDelay   time.Duration

	mu           sync.Mutex
	participants *registry.Registry
	phase        domain.Phase
	questions    []domain.Question
	index        int
	active       bool
	revealedAt   time.Time
	timer        *roundClock
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = defaultAnswerWindow
	}
	if c.Intermission <= 0 {
		c.Intermission = defaultIntermission
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = defaultResetDelay
	}

	return &Service{
		eb:           c.EventBus,
		supply:       c.Supply,
		clock:        c.Clock,
		rnd:          c.Rand,
		window:       c.AnswerWindow,
		intermission: c.Intermission,
		resetDelay:   c.ResetDelay,
		participants: registry.New(),
		phase:        domain.PhaseWaiting,
		timer:        newRoundClock(c.Clock),
	}
}

// Phase returns the current session phase.
func (s *Service) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Join registers a connection identity and broadcasts the updated roster.
func (s *Service) Join(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.participants.Join(id)
	telemetry.ConnectedParticipants.Set(float64(s.participants.Count()))
	s.publishRosterLocked(ctx)
}

// SetName renames a participant and broadcasts the updated roster.
func (s *Service) SetName(ctx context.Context, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.participants.SetName(id, name)
	s.publishRosterLocked(ctx)
}

// Disconnect removes a participant. Phase, timers and the current question
// are untouched; only the roster broadcast changes.
func (s *Service) Disconnect(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.participants.Leave(id)
	telemetry.ConnectedParticipants.Set(float64(s.participants.Count()))
	s.publishRosterLocked(ctx)
}

// Start begins a new session round-trip: fetch and shuffle the question
// set, zero the scores and reveal the first question. A start request while
// the session is not waiting, or with fewer than two participants, is
// silently ignored. A failed or empty fetch is surfaced once as a session
// error and the session stays in waiting.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if !s.startableLocked() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// The fetch happens outside the lock so a slow question store cannot
	// stall joins and answers. The guard is re-checked afterwards.
	questions, err := s.supply.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.startableLocked() {
		return
	}

	if err != nil {
		slog.ErrorContext(ctx, "game: fetch questions failed", "error", err)
		s.eb.Publish(ctx, domain.EventSessionError{Message: "failed to load questions"})
		return
	}
	if len(questions) == 0 {
		s.eb.Publish(ctx, domain.EventSessionError{Message: "no questions available to start the game"})
		return
	}

	s.shuffle(questions)
	s.questions = questions
	s.index = 0
	s.phase = domain.PhasePlaying
	s.participants.ResetScores()
	telemetry.SessionsStarted.Inc()
	slog.InfoContext(ctx, "game: session started",
		"participants", s.participants.Count(),
		"questions", len(questions),
	)

	s.publishRosterLocked(ctx)
	s.revealLocked(ctx)
}

type SubmitAnswerRequest struct {
	ParticipantID string
	QuestionID    string
	Answer        string
}

// SubmitAnswer takes one submission per participant per question. It is
// silently ignored outside an active question or after the participant has
// already answered. Correctness requires the submitted question ID to match
// the active question and the answer text to equal the stored answer
// exactly; a correct answer is scored by speed, an incorrect one scores
// zero but still consumes the attempt.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying || !s.active {
		return
	}

	if !s.participants.MarkAnswered(req.ParticipantID) {
		return
	}

	q := s.questions[s.index]
	if req.QuestionID != q.ID || req.Answer != q.Answer {
		telemetry.AnswersSubmitted.WithLabelValues("incorrect").Inc()
		return
	}

	elapsed := s.clock.Now().Sub(s.revealedAt)
	s.participants.AddScore(req.ParticipantID, Points(s.window, elapsed))
	telemetry.AnswersSubmitted.WithLabelValues("correct").Inc()
}

// Close disarms any in-flight timer. Used on shutdown.
func (s *Service) Close() {
	s.timer.Disarm()
}

func (s *Service) startableLocked() bool {
	return s.phase == domain.PhaseWaiting && s.participants.Count() >= minParticipants
}

// revealLocked opens the answer window for the question at the current index.
func (s *Service) revealLocked(ctx context.Context) {
	s.participants.ResetRoundFlags()
	s.active = true
	s.revealedAt = s.clock.Now()

	q := s.questions[s.index]
	telemetry.QuestionsRevealed.Inc()

	// Arm before publishing so that once a subscriber sees the reveal, the
	// deadline is already in place.
	s.timer.Arm(s.window, s.endRound)
	s.eb.Publish(ctx, domain.EventQuestionRevealed{
		QuestionID: q.ID,
		Statement:  q.Statement,
		Ordinal:    s.index + 1,
		Total:      len(s.questions),
		DurationMs: s.window.Milliseconds(),
	})
}

// endRound runs on answer-window expiry: broadcast the correct answer with
// the score snapshot, advance the index and schedule the intermission.
func (s *Service) endRound() {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying || !s.active {
		return
	}

	q := s.questions[s.index]
	s.active = false
	s.index++

	s.timer.Arm(s.intermission, s.advance)
	s.eb.Publish(ctx, domain.EventRoundResult{
		CorrectAnswer: q.Answer,
		Participants:  s.participants.Snapshot(),
	})
}

// advance runs after the intermission: reveal the next question, or end the
// session when the sequence is exhausted.
func (s *Service) advance() {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhasePlaying || s.active {
		return
	}

	if s.index < len(s.questions) {
		s.revealLocked(ctx)
		return
	}

	s.phase = domain.PhaseFinished
	slog.InfoContext(ctx, "game: session finished", "questions", len(s.questions))

	s.timer.Arm(s.resetDelay, s.reset)
	s.eb.Publish(ctx, domain.EventSessionEnded{
		Participants: s.participants.Snapshot(),
	})
}

// reset returns the session to waiting after the cooldown, zeroing scores
// and the question index.
func (s *Service) reset() {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseFinished {
		return
	}

	s.phase = domain.PhaseWaiting
	s.questions = nil
	s.index = 0
	s.participants.ResetScores()
	slog.InfoContext(ctx, "game: session reset")

	s.eb.Publish(ctx, domain.EventSessionReset{
		Participants: s.participants.Snapshot(),
	})
}

func (s *Service) publishRosterLocked(ctx context.Context) {
	s.eb.Publish(ctx, domain.EventRosterUpdated{
		Participants: s.participants.Snapshot(),
	})
}

// shuffle is an explicit Fisher–Yates pass over the fetched question set,
// driven by the service's seedable source.
func (s *Service) shuffle(qs []domain.Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// Points scores a correct answer: a 100-point base plus 10 points per
// remaining second, floored at 10 so even the slowest correct answer counts.
func Points(window, elapsed time.Duration) int {
	bonus := math.Floor((window - elapsed).Seconds() * 10)
	points := basePoints + int(bonus)
	if points < floorPoints {
		points = floorPoints
	}
	return points
}
