package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc    func(ctx context.Context, book Book) (BookEntity, error)
	GetOneFunc func(ctx context.Context, id int) (BookEntity, error)
	GetAllFunc func(ctx context.Context) ([]BookEntity, error)
	CountFunc  func(ctx context.Context) (int, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) (BookEntity, error) {
	return m.AddFunc(ctx, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id int) (BookEntity, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]BookEntity, error) {
	return m.GetAllFunc(ctx)
}

// Count mocks the behavior of counting books by the repository.
func (m *MockBookStorage) Count(ctx context.Context) (int, error) {
	return m.CountFunc(ctx)
}

// MockQueuer records pushed events and serves popped ones from a channel.
type MockQueuer struct {
	mu       sync.Mutex
	pushed   []BookEvent
	PushErr  error
	PopErr   error
	popCalls int
	events   chan BookEvent
}

func NewMockQueuer() *MockQueuer {
	return &MockQueuer{events: make(chan BookEvent, 16)}
}

func (mq *MockQueuer) Push(_ context.Context, _ string, event BookEvent) error {
	if mq.PushErr != nil {
		return mq.PushErr
	}
	mq.mu.Lock()
	mq.pushed = append(mq.pushed, event)
	mq.mu.Unlock()
	mq.events <- event
	return nil
}

func (mq *MockQueuer) Pop(ctx context.Context, _ ...string) (string, BookEvent, error) {
	mq.mu.Lock()
	mq.popCalls++
	mq.mu.Unlock()
	if mq.PopErr != nil {
		return "", BookEvent{}, mq.PopErr
	}
	select {
	case <-ctx.Done():
		return "", BookEvent{}, ctx.Err()
	case event := <-mq.events:
		return BookAddedQueue, event, nil
	}
}

func (mq *MockQueuer) PopCalls() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.popCalls
}

func (mq *MockQueuer) Pushed() []BookEvent {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return append([]BookEvent(nil), mq.pushed...)
}

// MockBookArchive keeps saved events in memory.
type MockBookArchive struct {
	mu     sync.Mutex
	events []BookEvent
	err    error
}

func (ma *MockBookArchive) Save(_ context.Context, event BookEvent) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.events = append(ma.events, event)
	return nil
}

func (ma *MockBookArchive) GetAll(_ context.Context) ([]BookEvent, error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return append([]BookEvent{}, ma.events...), ma.err
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// newTestCatalogService returns a service over a freshly seeded memory storage.
func newTestCatalogService(t *testing.T, queue Queuer) CatalogServiceProvider {
	t.Helper()
	storage, err := NewMemoryBookStorage(zap.NewNop(), DefaultSeedBooks()...)
	require.NoError(t, err)
	return NewCatalogService(zap.NewNop(), NewMockClocker(), NewMockUIDHandler("event-0", true), storage, queue)
}

// newTestAPIHandler returns an api handler with fixed clock and ids.
func newTestAPIHandler(t *testing.T, cs CatalogServiceProvider) *APIHandler {
	t.Helper()
	clock := NewMockClocker()
	api, err := NewAPIHandler(
		zap.NewNop(),
		&Config{},
		&Statistics{started: clock.Now()},
		clock,
		NewMockUIDHandler("cb8f2136-fae4-4200-85d9-3533c7f8c70d", false),
		cs,
	)
	require.NoError(t, err)
	return api
}
