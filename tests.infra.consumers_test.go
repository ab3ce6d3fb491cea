package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestBoltDBConsumer ensures queued events end up in the archive
// and the consumer exits once its context is done.
func TestBoltDBConsumer(t *testing.T) {
	queue := NewMockQueuer()
	archive := &MockBookArchive{}
	consumer := NewBoltDBConsumer(zap.NewNop(), queue, archive)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(ctx, BookAddedQueue)
	}()

	first, second := newTestBookEvent(2, "a"), newTestBookEvent(3, "b")
	require.NoError(t, queue.Push(context.Background(), BookAddedQueue, first))
	require.NoError(t, queue.Push(context.Background(), BookAddedQueue, second))

	assert.Eventually(t, func() bool {
		events, _ := archive.GetAll(context.Background())
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after context cancellation")
	}

	events, err := archive.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []BookEvent{first, second}, events)
}

// TestCatalogJournalFlow ensures a mutation travels from the service to the archive.
func TestCatalogJournalFlow(t *testing.T) {
	queue := NewMockQueuer()
	archive := &MockBookArchive{}
	cs := newTestCatalogService(t, queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = NewBoltDBConsumer(zap.NewNop(), queue, archive).Consume(ctx, BookAddedQueue)
	}()

	entity, err := cs.MutateAddBook(context.Background(), Book{Title: "To foo or not to foo...", Author: Author{Name: "Lord Test McTestish"}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		events, _ := archive.GetAll(context.Background())
		return len(events) == 1 && events[0].Entity == entity
	}, time.Second, 10*time.Millisecond)
}

// TestBoltDBConsumer_PopFailure ensures a failing queue backend is retried
// at a bounded pace and the consumer still exits on context cancellation.
func TestBoltDBConsumer_PopFailure(t *testing.T) {
	queue := NewMockQueuer()
	queue.PopErr = errors.New("redis: connection refused")
	consumer := &boltDBConsumer{
		logger:     zap.NewNop(),
		queue:      queue,
		archive:    &MockBookArchive{},
		retryDelay: 50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(ctx, BookAddedQueue)
	}()

	time.Sleep(220 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop while waiting to retry")
	}

	calls := queue.PopCalls()
	assert.GreaterOrEqual(t, calls, 2)
	assert.LessOrEqual(t, calls, 6)
}

func TestNewBoltDBConsumer_RetryDelay(t *testing.T) {
	consumer, ok := NewBoltDBConsumer(zap.NewNop(), NewMockQueuer(), &MockBookArchive{}).(*boltDBConsumer)
	require.True(t, ok)
	assert.Equal(t, consumerRetryDelay, consumer.retryDelay)
}
