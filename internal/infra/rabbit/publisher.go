// Package rabbit publishes result events to a RabbitMQ topic exchange.
package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"learnassess/internal/domain"
)

const (
	DefaultExchange = "learnassess.events"
	// ResultCompletedKey is the routing key of every stored result.
	ResultCompletedKey = "result.completed"
)

// ResultEvent is the JSON body published for each stored result.
type ResultEvent struct {
	Type           string    `json:"type"`
	ResultID       string    `json:"resultId"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	Score          float64   `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
}

func NewResultEvent(r domain.Result) ResultEvent {
	return ResultEvent{
		Type:           ResultCompletedKey,
		ResultID:       r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		Score:          r.Score,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		TimeSpent:      r.TimeSpent,
		CompletedAt:    r.CompletedAt,
	}
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// link is one connection with its channel. closed fires when the broker or
// the network drops either of them.
type link struct {
	ch     channel
	conn   io.Closer
	closed <-chan *amqp.Error
}

func (l *link) alive() bool {
	select {
	case <-l.closed:
		return false
	default:
		return !l.ch.IsClosed()
	}
}

func (l *link) close() error {
	err := l.ch.Close()
	if cerr := l.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Publisher owns one connection and one channel. Publishes are serialized.
// A dropped link is re-dialed on the next publish.
type Publisher struct {
	exchange string
	dial     func() (*link, error)
	logger   *slog.Logger

	mu   sync.Mutex
	link *link
}

// Dial connects and declares the durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	return newPublisher(exchange, func() (*link, error) { return dialLink(url) }, logger)
}

func newPublisher(exchange string, dial func() (*link, error), logger *slog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{exchange: exchange, dial: dial, logger: logger}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialLink(url string) (*link, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &link{ch: ch, conn: conn, closed: ch.NotifyClose(make(chan *amqp.Error, 1))}, nil
}

func (p *Publisher) connectLocked() error {
	l, err := p.dial()
	if err != nil {
		return err
	}
	err = l.ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		l.close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.link = l
	return nil
}

func (p *Publisher) dropLocked() {
	if p.link != nil {
		_ = p.link.close()
		p.link = nil
	}
}

// Exchange is the name events are published to.
func (p *Publisher) Exchange() string { return p.exchange }

// PublishResult sends a result.completed event. A publish that finds the
// channel closed re-dials once and tries again.
func (p *Publisher) PublishResult(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(NewResultEvent(result))
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    result.ID,
		Timestamp:    result.CreatedAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.publishLocked(ctx, msg)
	if errors.Is(err, amqp.ErrClosed) {
		p.logger.Warn("rabbitmq channel closed during publish, reconnecting", "result", result.ID)
		p.dropLocked()
		err = p.publishLocked(ctx, msg)
	}
	return err
}

func (p *Publisher) publishLocked(ctx context.Context, msg amqp.Publishing) error {
	if p.link != nil && !p.link.alive() {
		p.logger.Warn("rabbitmq connection lost, reconnecting", "exchange", p.exchange)
		p.dropLocked()
	}
	if p.link == nil {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	return p.link.ch.PublishWithContext(ctx,
		p.exchange,
		ResultCompletedKey,
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link == nil {
		return nil
	}
	err := p.link.close()
	p.link = nil
	return err
}
