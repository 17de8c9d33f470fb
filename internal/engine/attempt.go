package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"learnassess/internal/domain"
)

// State is the lifecycle position of an attempt.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	// StateAbandoned is terminal: the taker left before submitting.
	StateAbandoned State = "abandoned"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

var errNoResultSink = errors.New("engine: result sink is not configured")

// Snapshot is a copy of an attempt's observable state.
type Snapshot struct {
	AttemptID            string         `json:"attemptId"`
	QuizID               string         `json:"quizId"`
	State                State          `json:"state"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	QuestionCount        int            `json:"questionCount"`
	SelectedAnswers      map[int]int    `json:"selectedAnswers"`
	TimeRemainingSeconds int            `json:"timeRemainingSeconds"`
	Result               *domain.Result `json:"result,omitempty"`
	Persisted            bool           `json:"persisted"`
}

// Outcome is what a completed attempt produced. Result is the stored record
// when persistence succeeded and the locally computed one otherwise.
type Outcome struct {
	Result     domain.Result
	Persisted  bool
	PersistErr error
}

// Attempt is one user's run through one quiz. All mutations are serialized
// by mu; the countdown goroutine and callers go through the same methods.
type Attempt struct {
	id     string
	engine *Engine
	quiz   domain.Quiz

	mu          sync.Mutex
	state       State
	current     int
	selected    map[int]int
	remaining   int
	timer       *countdown
	outcome     Outcome
	done        chan struct{}
	subscribers map[chan Snapshot]struct{}
}

func newAttempt(id string, e *Engine, quiz domain.Quiz) *Attempt {
	return &Attempt{
		id:          id,
		engine:      e,
		quiz:        quiz,
		state:       StateLoading,
		selected:    make(map[int]int),
		done:        make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (a *Attempt) begin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateInProgress
	a.current = 0
	a.remaining = a.quiz.TimeLimitSeconds()
	if a.remaining < 0 {
		a.remaining = 0
	}
	a.timer = startCountdown(a.engine.newTicker, time.Second, a.Tick)
}

// ID identifies the attempt.
func (a *Attempt) ID() string { return a.id }

// UserID is the taker the attempt belongs to.
func (a *Attempt) UserID() string { return a.engine.principal.UserID }

// Quiz returns the quiz being attempted.
func (a *Attempt) Quiz() domain.Quiz { return a.quiz }

// Done is closed once the attempt is completed or abandoned.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// SelectAnswer records optionIndex for questionIndex, replacing any earlier
// choice. It is ignored once the attempt has left InProgress.
func (a *Attempt) SelectAnswer(questionIndex, optionIndex int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return nil
	}
	if questionIndex < 0 || questionIndex >= len(a.quiz.Questions) {
		return domain.ErrQuestionNotFound
	}
	if optionIndex < 0 || optionIndex >= len(a.quiz.Questions[questionIndex].Options) {
		return domain.ErrOptionNotFound
	}
	a.selected[questionIndex] = optionIndex
	a.broadcastLocked()
	return nil
}

// GoToQuestion moves to index, clamped into the valid range.
func (a *Attempt) GoToQuestion(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return
	}
	a.current = a.clamp(index)
	a.broadcastLocked()
}

// Next advances one question; a no-op on the last question.
func (a *Attempt) Next() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return
	}
	if a.current < len(a.quiz.Questions)-1 {
		a.current++
		a.broadcastLocked()
	}
}

// Previous goes back one question; a no-op on the first question.
func (a *Attempt) Previous() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return
	}
	if a.current > 0 {
		a.current--
		a.broadcastLocked()
	}
}

func (a *Attempt) clamp(index int) int {
	last := len(a.quiz.Questions) - 1
	if index > last {
		index = last
	}
	if index < 0 {
		index = 0
	}
	return index
}

// Tick counts one second down. Reaching zero stops the countdown and submits.
func (a *Attempt) Tick() {
	a.mu.Lock()
	if a.state != StateInProgress {
		a.mu.Unlock()
		return
	}
	if a.remaining > 0 {
		a.remaining--
	}
	if a.remaining > 0 {
		a.broadcastLocked()
		a.mu.Unlock()
		return
	}
	result := a.beginSubmitLocked()
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.engine.persistTimeout)
	defer cancel()
	a.persist(ctx, result)
}

// Submit scores the attempt and sends the result to the result sink. Only
// the first call from InProgress does anything; later calls, including a
// racing timeout, return false.
func (a *Attempt) Submit(ctx context.Context) (Outcome, bool) {
	a.mu.Lock()
	if a.state != StateInProgress {
		a.mu.Unlock()
		return Outcome{}, false
	}
	result := a.beginSubmitLocked()
	a.mu.Unlock()
	return a.persist(ctx, result), true
}

// Close is the navigate-away exit. It cancels the countdown and abandons an
// attempt that was still in progress. A submission already in flight is left
// to finish.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.cancel()
	}
	if a.state != StateInProgress && a.state != StateLoading {
		return
	}
	a.state = StateAbandoned
	a.broadcastLocked()
	a.finishLocked()
}

// Outcome returns the result once the attempt has completed.
func (a *Attempt) Outcome() (Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateCompleted {
		return Outcome{}, false
	}
	return a.outcome, true
}

// Snapshot copies the current state.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The channel is closed when the attempt reaches a terminal state. The
// caller must invoke cancel if it stops reading early.
func (a *Attempt) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	a.mu.Lock()
	ch <- a.snapshotLocked()
	if a.state.Terminal() {
		a.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) beginSubmitLocked() domain.Result {
	a.state = StateSubmitting
	if a.timer != nil {
		a.timer.cancel()
	}

	correct, score := Score(a.quiz, a.selected)
	spent := a.quiz.TimeLimitSeconds() - a.remaining
	if spent < 0 {
		spent = 0
	}
	result := domain.Result{
		UserID:          a.engine.principal.UserID,
		QuizID:          a.quiz.ID,
		Score:           score,
		CorrectAnswers:  correct,
		TotalQuestions:  a.quiz.QuestionCount(),
		SelectedAnswers: copyAnswers(a.selected),
		TimeSpent:       spent,
		CompletedAt:     a.engine.now().UTC(),
	}
	a.broadcastLocked()
	return result
}

func (a *Attempt) persist(ctx context.Context, result domain.Result) Outcome {
	outcome := Outcome{Result: result}
	if a.engine.collab.Results == nil {
		outcome.PersistErr = errNoResultSink
	} else if saved, err := a.engine.collab.Results.SaveResult(ctx, result); err != nil {
		outcome.PersistErr = err
	} else {
		outcome.Result = saved
		outcome.Persisted = true
	}
	if outcome.PersistErr != nil {
		a.engine.logger.Warn("quiz result not persisted",
			"attempt", a.id, "quiz", a.quiz.ID, "user", result.UserID, "err", outcome.PersistErr)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcome = outcome
	a.state = StateCompleted
	a.broadcastLocked()
	a.finishLocked()
	return outcome
}

func (a *Attempt) finishLocked() {
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *Attempt) broadcastLocked() {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest update so a slow reader still sees the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID:            a.id,
		QuizID:               a.quiz.ID,
		State:                a.state,
		CurrentQuestionIndex: a.current,
		QuestionCount:        a.quiz.QuestionCount(),
		SelectedAnswers:      copyAnswers(a.selected),
		TimeRemainingSeconds: a.remaining,
	}
	if a.state == StateCompleted {
		result := a.outcome.Result
		result.SelectedAnswers = copyAnswers(result.SelectedAnswers)
		snap.Result = &result
		snap.Persisted = a.outcome.Persisted
	}
	return snap
}

func copyAnswers(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
