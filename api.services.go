package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// CatalogServiceProvider is the query/mutation facade used by the api layer.
type CatalogServiceProvider interface {
	QueryBookByID(ctx context.Context, id int) (*BookEntity, error)
	QueryAllBooks(ctx context.Context) ([]BookEntity, error)
	MutateAddBook(ctx context.Context, book Book) (BookEntity, error)
	CountBooks(ctx context.Context) (int, error)
}

type CatalogService struct {
	logger  *zap.Logger
	clock   Clocker
	ids     UIDHandler
	storage BookStorage
	queue   Queuer
}

// NewCatalogService provides a catalog service. The queue is optional,
// when nil no journal event is published on mutations.
func NewCatalogService(logger *zap.Logger, clock Clocker, ids UIDHandler, storage BookStorage, queue Queuer) CatalogServiceProvider {
	return &CatalogService{
		logger:  logger,
		clock:   clock,
		ids:     ids,
		storage: storage,
		queue:   queue,
	}
}

// QueryBookByID returns a nil entity when the book does not exist.
func (cs *CatalogService) QueryBookByID(ctx context.Context, id int) (*BookEntity, error) {
	entity, err := cs.storage.GetOne(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (cs *CatalogService) QueryAllBooks(ctx context.Context) ([]BookEntity, error) {
	return cs.storage.GetAll(ctx)
}

// MutateAddBook inserts the book then publishes it to the journal queue.
// Publication failures are logged only.
func (cs *CatalogService) MutateAddBook(ctx context.Context, book Book) (BookEntity, error) {
	entity, err := cs.storage.Add(ctx, book)
	if err != nil {
		return entity, err
	}

	if cs.queue == nil {
		return entity, nil
	}
	event := BookEvent{
		ID:         cs.ids.Generate(EventIDPrefix),
		Type:       BookEventAdded,
		Entity:     entity,
		OccurredAt: cs.clock.Now(),
	}
	if err := cs.queue.Push(ctx, BookAddedQueue, event); err != nil {
		cs.logger.Error("service: failed to push book event to queue",
			append(EventFields(event), zap.String(LogKeyQueueID, BookAddedQueue), zap.Error(err))...,
		)
	}
	return entity, nil
}

func (cs *CatalogService) CountBooks(ctx context.Context) (int, error) {
	return cs.storage.Count(ctx)
}
