package rabbit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	closed     bool
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	if c.closed {
		return amqp.ErrClosed
	}
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeBroker struct {
	channels []*fakeChannel
	conns    []*fakeConn
	notify   []chan *amqp.Error
	dialErr  error
}

func (b *fakeBroker) dial() (*link, error) {
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	ch, conn, notify := &fakeChannel{}, &fakeConn{}, make(chan *amqp.Error, 1)
	b.channels = append(b.channels, ch)
	b.conns = append(b.conns, conn)
	b.notify = append(b.notify, notify)
	return &link{ch: ch, conn: conn, closed: notify}, nil
}

func newFakePublisher(t *testing.T) (*Publisher, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	pub, err := newPublisher("", broker.dial, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Len(t, broker.channels, 1)
	require.Equal(t, []string{DefaultExchange}, broker.channels[0].declared)
	return pub, broker
}

func TestPublisherRedialsAfterCloseNotification(t *testing.T) {
	pub, broker := newFakePublisher(t)
	ctx := context.Background()

	require.NoError(t, pub.PublishResult(ctx, sampleResult()))
	require.Len(t, broker.channels[0].published, 1)

	broker.notify[0] <- amqp.ErrClosed
	require.NoError(t, pub.PublishResult(ctx, sampleResult()))

	require.Len(t, broker.channels, 2)
	require.True(t, broker.conns[0].closed)
	require.Len(t, broker.channels[0].published, 1)
	require.Len(t, broker.channels[1].published, 1)
	require.Equal(t, []string{DefaultExchange}, broker.channels[1].declared)
	require.Equal(t, "res-1", broker.channels[1].published[0].MessageId)
}

func TestPublisherRetriesOnceWhenChannelClosed(t *testing.T) {
	pub, broker := newFakePublisher(t)
	broker.channels[0].publishErr = amqp.ErrClosed

	require.NoError(t, pub.PublishResult(context.Background(), sampleResult()))
	require.Len(t, broker.channels, 2)
	require.Len(t, broker.channels[1].published, 1)
}

func TestPublisherKeepsRedialingWhileBrokerIsDown(t *testing.T) {
	pub, broker := newFakePublisher(t)
	ctx := context.Background()

	broker.channels[0].closed = true
	broker.dialErr = errors.New("connection refused")
	require.ErrorContains(t, pub.PublishResult(ctx, sampleResult()), "connection refused")

	broker.dialErr = nil
	require.NoError(t, pub.PublishResult(ctx, sampleResult()))
	require.Len(t, broker.channels, 2)
	require.Len(t, broker.channels[1].published, 1)
	require.NoError(t, pub.Close())
	require.True(t, broker.conns[1].closed)
}

func TestPublisherDoesNotRetryOtherErrors(t *testing.T) {
	pub, broker := newFakePublisher(t)
	boom := errors.New("boom")
	broker.channels[0].publishErr = boom

	require.ErrorIs(t, pub.PublishResult(context.Background(), sampleResult()), boom)
	require.Len(t, broker.channels, 1)
}
