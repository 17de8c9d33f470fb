package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"learnassess/internal/app"
	"learnassess/internal/config"
	"learnassess/internal/engine"
	"learnassess/internal/infra/memory"
	"learnassess/internal/infra/postgres"
	"learnassess/internal/infra/rabbit"
	redisinfra "learnassess/internal/infra/redis"
	"learnassess/internal/logger"
	"learnassess/internal/security"
	transport "learnassess/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the optional external connections; nil means the in-memory
// adapter is used instead.
type backends struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher *rabbit.Publisher
}

func (b *backends) close() {
	if b.publisher != nil {
		_ = b.publisher.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Log.Format, cfg.Log.Level)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	be, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	services := buildServices(cfg, be, log)
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if _, err := services.Auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	handler := transport.NewRouter(services, transport.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
		RequestLog:  true,
	})

	// No WriteTimeout: live attempt sockets stay open for the quiz time limit.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting learnassess api", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	be := &backends{}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		be.pool = pool
	} else {
		log.Warn("postgres not configured, using in-memory stores")
	}

	if cfg.Redis.Addr != "" {
		be.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbit.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			be.close()
			return nil, err
		}
		be.publisher = publisher
	}
	return be, nil
}

func buildServices(cfg config.Config, be *backends, log *slog.Logger) transport.Services {
	var (
		quizStore   app.QuizStore
		resultStore app.ResultStore
		userStore   app.UserStore
	)
	if be.pool != nil {
		quizStore = postgres.NewQuizStore(be.pool)
		resultStore = postgres.NewResultStore(be.pool)
		userStore = postgres.NewUserStore(be.pool)
	} else {
		quizStore = memory.NewQuizStore(sampleQuizzes()...)
		resultStore = memory.NewResultStore()
		userStore = memory.NewUserStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizCache app.QuizRepository
	var registry app.AttemptRegistry
	if be.redis != nil {
		quizCache = redisinfra.NewQuizRepository(be.redis, quizStore, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		registry = redisinfra.NewAttemptStore(be.redis, config.TTLDuration(cfg.Attempt.TTL, 3*time.Hour))
	} else {
		quizCache = memory.NewQuizRepository(quizStore, quizTTL)
		registry = memory.NewAttemptStore()
	}

	var publisher app.EventPublisher
	if be.publisher != nil {
		publisher = be.publisher
	}

	tokens := security.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 30*24*time.Hour))
	auth := app.NewAuthService(userStore, tokens, security.NewPasswordHasher(bcrypt.DefaultCost))
	quizzes := app.NewQuizService(quizStore, quizCache)
	results := app.NewResultService(resultStore, quizzes, publisher, log).WithUsers(userStore)
	attempts := app.NewAttemptService(registry, quizzes, results, log,
		engine.WithPersistTimeout(config.TTLDuration(cfg.Attempt.PersistTimeout, 10*time.Second)))

	return transport.Services{Auth: auth, Quizzes: quizzes, Results: results, Attempts: attempts}
}
