package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"learnassess/internal/domain"
	"learnassess/internal/engine"
)

// ErrQuit is returned when the taker leaves before submitting.
var ErrQuit = errors.New("attempt abandoned")

// Runner drives one engine attempt from a line-oriented terminal.
type Runner struct {
	engine *engine.Engine
	in     io.Reader
	out    io.Writer
}

func NewRunner(eng *engine.Engine, in io.Reader, out io.Writer) *Runner {
	return &Runner{engine: eng, in: in, out: out}
}

// Run starts quizID and reads commands until the attempt completes, either
// by submit or by the countdown running out. Input ending early abandons it.
func (r *Runner) Run(ctx context.Context, quizID string) (engine.Outcome, error) {
	attempt, err := r.engine.Start(ctx, quizID)
	if err != nil {
		return engine.Outcome{}, err
	}
	defer attempt.Close()

	quiz := attempt.Quiz()
	fmt.Fprintf(r.out, "%s (%d questions, %d min)\n", quiz.Title, quiz.QuestionCount(), quiz.TimeLimit)
	fmt.Fprintln(r.out, "Answer with a letter. n/p move, g N jumps, s submits, q quits.")
	r.printQuestion(attempt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-attempt.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return engine.Outcome{}, ctx.Err()
		case <-attempt.Done():
			return r.finish(attempt)
		case line, ok := <-lines:
			if !ok {
				if attempt.Snapshot().State.Terminal() {
					return r.finish(attempt)
				}
				return engine.Outcome{}, ErrQuit
			}
			quit, err := r.handle(ctx, attempt, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintln(r.out, err)
			}
			if quit {
				return engine.Outcome{}, ErrQuit
			}
			if attempt.Snapshot().State.Terminal() {
				return r.finish(attempt)
			}
			r.printQuestion(attempt)
		}
	}
}

func (r *Runner) handle(ctx context.Context, attempt *engine.Attempt, line string) (bool, error) {
	snap := attempt.Snapshot()
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "q", "quit":
		return true, nil
	case "s", "submit":
		attempt.Submit(ctx)
	case "n", "next":
		attempt.Next()
	case "p", "prev", "previous":
		attempt.Previous()
	case "g", "goto":
		if len(fields) < 2 {
			return false, errors.New("usage: g <question number>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid question number %q", fields[1])
		}
		attempt.GoToQuestion(n - 1)
	default:
		if len(fields[0]) != 1 || fields[0][0] < 'a' || fields[0][0] > 'z' {
			return false, fmt.Errorf("unknown command %q", line)
		}
		option := int(fields[0][0] - 'a')
		if err := attempt.SelectAnswer(snap.CurrentQuestionIndex, option); err != nil {
			if errors.Is(err, domain.ErrOptionNotFound) {
				return false, fmt.Errorf("no option %s", strings.ToUpper(fields[0]))
			}
			return false, err
		}
	}
	return false, nil
}

func (r *Runner) printQuestion(attempt *engine.Attempt) {
	snap := attempt.Snapshot()
	quiz := attempt.Quiz()
	if snap.QuestionCount == 0 {
		fmt.Fprintln(r.out, "\nThis quiz has no questions. Press s to submit.")
		return
	}
	question := quiz.Questions[snap.CurrentQuestionIndex]
	fmt.Fprintf(r.out, "\nQ%d/%d  [%s left]\n%s\n", snap.CurrentQuestionIndex+1, snap.QuestionCount,
		formatClock(snap.TimeRemainingSeconds), question.Text)
	selected, answered := snap.SelectedAnswers[snap.CurrentQuestionIndex]
	for i, opt := range question.Options {
		marker := " "
		if answered && selected == i {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %c. %s\n", marker, 'A'+i, opt.Text)
	}
}

func (r *Runner) finish(attempt *engine.Attempt) (engine.Outcome, error) {
	outcome, ok := attempt.Outcome()
	if !ok {
		return engine.Outcome{}, ErrQuit
	}
	result := outcome.Result
	if result.TimeSpent >= attempt.Quiz().TimeLimitSeconds() {
		fmt.Fprintln(r.out, "\nTime is up.")
	}
	fmt.Fprintf(r.out, "\nScore: %.0f%% (%d/%d correct) in %s\n", result.Score, result.CorrectAnswers,
		result.TotalQuestions, formatClock(result.TimeSpent))
	if !outcome.Persisted {
		fmt.Fprintf(r.out, "Result was not saved: %v\n", outcome.PersistErr)
	}
	return outcome, nil
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
