package main

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/boltdb/bolt"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// BookArchive stores journal events. It is write-mostly and
// only read back by the ops journal endpoint.
type BookArchive interface {
	Save(ctx context.Context, event BookEvent) error
	GetAll(ctx context.Context) ([]BookEvent, error)
}

var _ BookArchive = (*boltBookArchive)(nil)

type boltBookArchive struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookArchive provides an instance of bolt-based events archive.
func NewBoltBookArchive(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltBookArchive {
	return &boltBookArchive{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based archive.
func (ba *boltBookArchive) Close() error {
	return ba.client.Close()
}

// archiveKey encodes the entity id in big endian so the
// bucket cursor walks events in id order.
func archiveKey(id int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Save inserts or replaces the event stored for its entity id.
func (ba *boltBookArchive) Save(_ context.Context, event BookEvent) error {
	eventBytes, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return err
	}
	return ba.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ba.config.BucketName)).Put(archiveKey(event.Entity.ID), eventBytes)
	})
}

// GetAll retrieves all archived events ordered by entity id.
func (ba *boltBookArchive) GetAll(_ context.Context) ([]BookEvent, error) {
	tx, err := ba.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(ba.config.BucketName)).Cursor()

	events := []BookEvent{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var event BookEvent
		if err = jsoniter.ConfigFastest.Unmarshal(v, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
