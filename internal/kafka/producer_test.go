package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// No messages are published in these tests, so the writer never dials a
// broker and shutdown only exercises the drain goroutine.

func requireClosed(t *testing.T, p *Producer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not shut down")
	}
}

func TestProducerCloseThenCancel(t *testing.T) {
	p := NewProducer([]string{"localhost:9"}, "orders.placed", 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Close()
	cancel()
	requireClosed(t, p)
}

func TestProducerCancelThenClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9"}, "orders.placed", 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.Close()
	requireClosed(t, p)
}

func TestProducerCloseIdempotent(t *testing.T) {
	p := NewProducer([]string{"localhost:9"}, "orders.placed", 4)
	p.Start(context.Background())

	require.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
	requireClosed(t, p)
}
