package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var _ BookStorage = (*memoryBookStorage)(nil)

// memoryBookStorage keeps the catalog in process memory. The map and
// the id counter are guarded by the same lock so two concurrent adds
// can never be given the same id.
type memoryBookStorage struct {
	logger *zap.Logger
	mu     sync.RWMutex
	books  map[int]Book
	order  []int
	lastID int
}

// NewMemoryBookStorage provides an in-memory book storage pre-populated
// with the given seed books. Seeds are numbered from 1 in the given order.
func NewMemoryBookStorage(logger *zap.Logger, seeds ...Book) (*memoryBookStorage, error) {
	ms := &memoryBookStorage{
		logger: logger,
		books:  make(map[int]Book, len(seeds)),
	}
	for _, book := range seeds {
		if _, err := ms.Add(context.Background(), book); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// Add validates then inserts a new book under the next identifier.
func (ms *memoryBookStorage) Add(_ context.Context, book Book) (BookEntity, error) {
	if err := book.Validate(); err != nil {
		return BookEntity{}, err
	}

	ms.mu.Lock()
	ms.lastID++
	id := ms.lastID
	ms.books[id] = book
	ms.order = append(ms.order, id)
	ms.mu.Unlock()

	ms.logger.Debug("storage: book added", zap.Int(LogKeyBookID, id))
	return BookEntity{ID: id, Book: book}, nil
}

// GetOne retrieves a book record based on its ID.
func (ms *memoryBookStorage) GetOne(_ context.Context, id int) (BookEntity, error) {
	ms.mu.RLock()
	book, ok := ms.books[id]
	ms.mu.RUnlock()
	if !ok {
		return BookEntity{}, ErrBookNotFound
	}
	return BookEntity{ID: id, Book: book}, nil
}

// GetAll returns a snapshot of all books in insertion order.
func (ms *memoryBookStorage) GetAll(_ context.Context) ([]BookEntity, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	books := make([]BookEntity, 0, len(ms.order))
	for _, id := range ms.order {
		books = append(books, BookEntity{ID: id, Book: ms.books[id]})
	}
	return books, nil
}

// Count returns the number of stored books.
func (ms *memoryBookStorage) Count(_ context.Context) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.books), nil
}
