package question

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service is the question store. The session coordinator consumes it only
// through FetchAll; the rest is the content-management surface.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
	}
}

// FetchAll returns every question projected down to what a round needs.
// An empty store yields an empty slice, not an error.
func (s *Service) FetchAll(ctx context.Context) ([]domain.Question, error) {
	const stmt = `SELECT question_id, statement, answer FROM questions;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		if err := r.Scan(&q.ID, &q.Statement, &q.Answer); err != nil {
			return domain.Question{}, err
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	return questions, nil
}

type ListQuestionsRequest struct{}

// ListQuestions returns full records, newest first.
func (s *Service) ListQuestions(ctx context.Context, _ ListQuestionsRequest) ([]domain.StoredQuestion, error) {
	const stmt = `
SELECT question_id, statement, answer, correction, simplified_statement, hint, create_time
FROM questions
ORDER BY create_time DESC;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.StoredQuestion, error) {
		var q domain.StoredQuestion
		if err := r.Scan(&q.ID, &q.Statement, &q.Answer, &q.Correction, &q.SimplifiedStatement, &q.Hint, &q.CreateTime); err != nil {
			return domain.StoredQuestion{}, err
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return questions, nil
}

type CreateQuestionRequest struct {
	Statement           string `json:"statement"`
	Answer              string `json:"answer"`
	Correction          string `json:"correction"`
	SimplifiedStatement string `json:"simplified_statement"`
	Hint                string `json:"hint"`
}

func (s *Service) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*domain.StoredQuestion, error) {
	if strings.TrimSpace(req.Statement) == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("statement is required"))
	}
	if strings.TrimSpace(req.Answer) == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("answer is required"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate question ID: %w", err)
	}

	const stmt = `
INSERT INTO questions (question_id, statement, answer, correction, simplified_statement, hint, create_time)
VALUES ($1, $2, $3, $4, $5, $6, now())
RETURNING create_time;`

	q := &domain.StoredQuestion{
		ID:                  id.String(),
		Statement:           req.Statement,
		Answer:              req.Answer,
		Correction:          req.Correction,
		SimplifiedStatement: req.SimplifiedStatement,
		Hint:                req.Hint,
	}

	err = s.db.QueryRow(ctx, stmt,
		id, req.Statement, req.Answer, req.Correction, req.SimplifiedStatement, req.Hint,
	).Scan(&q.CreateTime)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	return q, nil
}

type DeleteQuestionRequest struct {
	QuestionID string
}

func (s *Service) DeleteQuestion(ctx context.Context, req DeleteQuestionRequest) error {
	const stmt = `DELETE FROM questions WHERE question_id = $1;`

	tag, err := s.db.Exec(ctx, stmt, req.QuestionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: %s", req.QuestionID))
	}

	return nil
}
