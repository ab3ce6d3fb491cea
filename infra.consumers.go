package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// consumerRetryDelay is the pause after a failed pop while the
// queue backend is unavailable.
const consumerRetryDelay = time.Second

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type boltDBConsumer struct {
	logger     *zap.Logger
	queue      Queuer
	archive    BookArchive
	retryDelay time.Duration
}

// NewBoltDBConsumer provides a consumer which archives queued events into boltdb.
func NewBoltDBConsumer(logger *zap.Logger, q Queuer, archive BookArchive) Consumer {
	return &boltDBConsumer{logger: logger, queue: q, archive: archive, retryDelay: consumerRetryDelay}
}

// Consume pops events until the context is done. It never returns
// an error so a failing event does not stop the whole app.
func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, event, err := bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Duration("retry.in", bc.retryDelay), zap.Error(err))
			select {
			case <-ctx.Done():
				bc.logger.Info("consumer: retry wait: context is done: exit", zap.String("reason", ctx.Err().Error()))
				return nil
			case <-time.After(bc.retryDelay):
			}
			continue
		}

		switch qid {
		case BookAddedQueue:
			if err = bc.archive.Save(ctx, event); err != nil {
				bc.logger.Error("consumer: failed to archive", append(EventFields(event), zap.Error(err))...)
			}
		default:
			bc.logger.Warn("consumer: received event on unknown queue id", append(EventFields(event), zap.String(LogKeyQueueID, qid))...)
		}
	}
}
