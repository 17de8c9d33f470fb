package domain

import "time"

// Category is the fixed set of subjects a quiz can belong to.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryProgramming Category = "programming"
	CategoryDesign      Category = "design"
	CategoryScience     Category = "science"
	CategoryMath        Category = "math"
	CategoryHistory     Category = "history"
)

// Role controls access to admin-only writes.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models a multiple choice question. Nothing enforces exactly one
// correct option; scoring matches on the selected index only.
type Question struct {
	Text    string   `json:"text" validate:"required"`
	Options []Option `json:"options" validate:"min=2,dive"`
}

// Quiz is an ordered collection of questions with a time limit in minutes.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Category    Category   `json:"category" validate:"required,oneof=general programming design science math history"`
	TimeLimit   int        `json:"timeLimit" validate:"min=1,max=120"`
	Questions   []Question `json:"questions" validate:"dive"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QuestionCount is the number of scorable questions.
func (q Quiz) QuestionCount() int {
	return len(q.Questions)
}

// TimeLimitSeconds is the countdown start value for an attempt.
func (q Quiz) TimeLimitSeconds() int {
	return q.TimeLimit * 60
}

// Public returns a copy without the correct-answer flags, safe to send to a
// client whose attempt is scored elsewhere.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		options := make([]Option, len(question.Options))
		for j, opt := range question.Options {
			options[j] = Option{Text: opt.Text}
		}
		out.Questions[i] = Question{Text: question.Text, Options: options}
	}
	return out
}

// QuizSummary is the slice of quiz metadata attached to result listings.
type QuizSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category Category `json:"category"`
}

// Result is the immutable record of a finished attempt.
type Result struct {
	ID              string      `json:"id,omitempty"`
	UserID          string      `json:"userId"`
	QuizID          string      `json:"quizId" validate:"required"`
	Score           float64     `json:"score" validate:"min=0,max=100"`
	CorrectAnswers  int         `json:"correctAnswers" validate:"min=0,ltefield=TotalQuestions"`
	TotalQuestions  int         `json:"totalQuestions" validate:"min=0"`
	SelectedAnswers map[int]int `json:"selectedAnswers"`
	TimeSpent       int         `json:"timeSpent" validate:"min=0"`
	CompletedAt     time.Time   `json:"completedAt"`
	CreatedAt       time.Time   `json:"createdAt,omitempty"`
}

// UserSummary is the slice of account data attached to admin listings.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// ResultView is a result joined with the quiz it belongs to and, in admin
// listings, the user who took it.
type ResultView struct {
	Result
	Quiz *QuizSummary `json:"quiz,omitempty"`
	User *UserSummary `json:"user,omitempty"`
}

// User is an account able to take quizzes; admins can also author them.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may perform admin-only writes.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ScoreBucket counts results whose score falls in a labelled range.
type ScoreBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuizAverage is the per-quiz slice of the analytics view.
type QuizAverage struct {
	QuizID   string `json:"quizId"`
	Title    string `json:"title"`
	Average  int    `json:"average"`
	Attempts int    `json:"attempts"`
}

// RecentScore is one point of the score-over-time series.
type RecentScore struct {
	ResultID    string    `json:"resultId"`
	QuizID      string    `json:"quizId"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// Analytics summarizes a user's finished attempts.
type Analytics struct {
	TotalAttempts      int           `json:"totalAttempts"`
	AverageScore       int           `json:"averageScore"`
	AverageTimeMinutes int           `json:"averageTimeMinutes"`
	HighestScore       float64       `json:"highestScore"`
	ScoreDistribution  []ScoreBucket `json:"scoreDistribution"`
	Recent             []RecentScore `json:"recent"`
	PerQuiz            []QuizAverage `json:"perQuiz"`
}
