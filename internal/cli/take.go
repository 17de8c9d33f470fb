package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"learnassess/internal/client"
	"learnassess/internal/engine"
	"learnassess/internal/logger"
)

type clientFlags struct {
	api      string
	email    string
	password string
}

func (f *clientFlags) bind(cmd *cobra.Command) {
	api := os.Getenv("LEARNASSESS_API")
	if api == "" {
		api = client.DefaultBaseURL
	}
	cmd.Flags().StringVar(&f.api, "api", api, "API base URL")
	cmd.Flags().StringVar(&f.email, "email", os.Getenv("LEARNASSESS_EMAIL"), "account email")
	cmd.Flags().StringVar(&f.password, "password", os.Getenv("LEARNASSESS_PASSWORD"), "account password")
}

func (f *clientFlags) login(ctx context.Context) (*client.HTTPClient, client.Session, error) {
	if f.email == "" || f.password == "" {
		return nil, client.Session{}, errors.New("--email and --password are required")
	}
	api := client.NewHTTPClient(f.api, &http.Client{Timeout: 15 * time.Second})
	session, err := api.Login(ctx, f.email, f.password)
	if err != nil {
		return nil, client.Session{}, fmt.Errorf("login: %w", err)
	}
	return api, session, nil
}

// NewTakeCmd runs a quiz attempt in the terminal against a remote API.
func NewTakeCmd() *cobra.Command {
	var (
		flags  clientFlags
		quizID string
	)
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a quiz in the terminal (lists quizzes without --quiz)",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, session, err := flags.login(cmd.Context())
			if err != nil {
				return err
			}
			if quizID == "" {
				return listQuizzes(cmd.Context(), api, cmd.OutOrStdout())
			}

			eng := engine.New(
				engine.Principal{UserID: session.User.ID},
				engine.Collaborators{Quizzes: api, Results: api},
				engine.WithLogger(logger.New(cmd.ErrOrStderr(), "text", "error")),
			)
			_, err = client.NewRunner(eng, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context(), quizID)
			if errors.Is(err, client.ErrQuit) {
				fmt.Fprintln(cmd.OutOrStdout(), "Attempt abandoned; nothing was saved.")
				return nil
			}
			return err
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&quizID, "quiz", "", "id of the quiz to take")
	return cmd
}

// NewResultsCmd prints the caller's past results and analytics.
func NewResultsCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show your quiz history and analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := flags.login(cmd.Context())
			if err != nil {
				return err
			}
			views, err := api.Results(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := api.Analytics(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range views {
				title := v.QuizID
				if v.Quiz != nil {
					title = v.Quiz.Title
				}
				fmt.Fprintf(out, "%s  %-30s %3.0f%%  %d/%d\n", v.CompletedAt.Local().Format("2006-01-02 15:04"),
					title, v.Score, v.CorrectAnswers, v.TotalQuestions)
			}
			fmt.Fprintf(out, "\nAttempts: %d  Average: %d%%  Best: %.0f%%  Avg time: %d min\n",
				summary.TotalAttempts, summary.AverageScore, summary.HighestScore, summary.AverageTimeMinutes)
			for _, b := range summary.ScoreDistribution {
				fmt.Fprintf(out, "  %-9s %d\n", b.Label, b.Count)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func listQuizzes(ctx context.Context, api *client.HTTPClient, out io.Writer) error {
	quizzes, err := api.ListQuizzes(ctx)
	if err != nil {
		return err
	}
	if len(quizzes) == 0 {
		fmt.Fprintln(out, "No quizzes available.")
		return nil
	}
	for _, q := range quizzes {
		fmt.Fprintf(out, "%-38s %-12s %2d min  %s\n", q.ID, q.Category, q.TimeLimit, q.Title)
	}
	fmt.Fprintln(out, "\nRun again with --quiz <id> to start.")
	return nil
}
