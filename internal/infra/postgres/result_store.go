package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnassess/internal/domain"
)

// ResultStore persists quiz results in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

const resultColumns = `id, user_id, quiz_id, score, correct_answers, total_questions, selected_answers, time_spent, completed_at, created_at`

func (s *ResultStore) SaveResult(ctx context.Context, r domain.Result) error {
	answers, err := encodeAnswers(r.SelectedAnswers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (`+resultColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)`,
		r.ID, r.UserID, r.QuizID, r.Score, r.CorrectAnswers, r.TotalQuestions, answers, r.TimeSpent, r.CompletedAt, r.CreatedAt)
	return err
}

func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.query(ctx,
		`SELECT `+resultColumns+` FROM quiz_results WHERE user_id=$1 ORDER BY completed_at DESC`, userID)
}

func (s *ResultStore) ListAll(ctx context.Context) ([]domain.Result, error) {
	return s.query(ctx, `SELECT `+resultColumns+` FROM quiz_results ORDER BY completed_at DESC`)
}

func (s *ResultStore) LatestFor(ctx context.Context, userID, quizID string) (domain.Result, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM quiz_results WHERE user_id=$1 AND quiz_id=$2 ORDER BY completed_at DESC LIMIT 1`,
		userID, quizID)
	r, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return r, err
}

func (s *ResultStore) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		r   domain.Result
		raw []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.QuizID, &r.Score, &r.CorrectAnswers, &r.TotalQuestions,
		&raw, &r.TimeSpent, &r.CompletedAt, &r.CreatedAt)
	if err != nil {
		return domain.Result{}, err
	}
	r.SelectedAnswers, err = decodeAnswers(raw)
	if err != nil {
		return domain.Result{}, err
	}
	return r, nil
}

// Answers are stored as {"<questionIndex>": optionIndex}.
func encodeAnswers(answers map[int]int) (string, error) {
	out := make(map[string]int, len(answers))
	for q, o := range answers {
		out[strconv.Itoa(q)] = o
	}
	data, err := json.Marshal(out)
	return string(data), err
}

func decodeAnswers(raw []byte) (map[int]int, error) {
	answers := make(map[int]int)
	if len(raw) == 0 {
		return answers, nil
	}
	var in map[string]int
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	for k, v := range in {
		q, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("answer key %q: %w", k, err)
		}
		answers[q] = v
	}
	return answers, nil
}
