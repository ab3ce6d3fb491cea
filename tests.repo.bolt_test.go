package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltArchive returns a new instance of archive in a temporary path.
func newTestBoltArchive() (*boltBookArchive, error) {
	f, err := os.CreateTemp("", "tmp.bolt.db-")
	if err != nil {
		return nil, err
	}
	f.Close()
	testConfig := &Config{
		BoltDB: BoltDBConfig{
			FilePath:   f.Name(),
			Timeout:    5 * time.Second,
			BucketName: "test.journal",
		},
	}

	client, err := GetBoltDBClient(testConfig)
	if err != nil {
		os.Remove(f.Name())
		return nil, err
	}
	return NewBoltBookArchive(zap.NewNop(), &testConfig.BoltDB, client), nil
}

// closeTestBoltArchive closes the temporary bolt archive and removes the underlying data file.
func (ba *boltBookArchive) closeTestBoltArchive() error {
	defer os.Remove(ba.config.FilePath)
	return ba.Close()
}

func newTestBookEvent(id int, title string) BookEvent {
	return BookEvent{
		ID:         "e:event-" + title,
		Type:       BookEventAdded,
		Entity:     BookEntity{ID: id, Book: Book{Title: title, Author: Author{Name: "Jon Skeet"}}},
		OccurredAt: NewMockClocker().Now(),
	}
}

func TestBoltArchive_Empty(t *testing.T) {
	ba, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer ba.closeTestBoltArchive()

	events, err := ba.GetAll(context.TODO())
	assert.NoError(t, err)
	assert.Empty(t, events)
}

// Ensure bolt archive returns saved events ordered by entity id.
func TestBoltArchive_SaveAndGetAll(t *testing.T) {
	ba, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer ba.closeTestBoltArchive()

	// 256 would sort before 2 with a textual key.
	require.NoError(t, ba.Save(context.TODO(), newTestBookEvent(256, "c")))
	require.NoError(t, ba.Save(context.TODO(), newTestBookEvent(2, "b")))
	require.NoError(t, ba.Save(context.TODO(), newTestBookEvent(1, "a")))

	events, err := ba.GetAll(context.TODO())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, newTestBookEvent(1, "a"), events[0])
	assert.Equal(t, newTestBookEvent(2, "b"), events[1])
	assert.Equal(t, newTestBookEvent(256, "c"), events[2])
}

// Ensure saving an event twice for the same entity keeps a single record.
func TestBoltArchive_SaveReplace(t *testing.T) {
	ba, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer ba.closeTestBoltArchive()

	require.NoError(t, ba.Save(context.TODO(), newTestBookEvent(1, "a")))
	require.NoError(t, ba.Save(context.TODO(), newTestBookEvent(1, "b")))

	events, err := ba.GetAll(context.TODO())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].Entity.Book.Title)
}

func TestGetBoltDBClient_InvalidPath(t *testing.T) {
	_, err := GetBoltDBClient(&Config{
		BoltDB: BoltDBConfig{
			FilePath:   "/nonexistent-folder/catalog.db",
			Timeout:    time.Second,
			BucketName: "test.journal",
		},
	})
	assert.Error(t, err)
}
