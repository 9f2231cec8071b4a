package corpus

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketBlocks = []byte("blocks")

// BoltStore is a Store backed by a single bbolt file. Block IDs come from the
// bucket sequence and keys are big-endian, so a cursor walks blocks in
// insertion order.
type BoltStore struct {
	db *bbolt.DB
}

type blockRecord struct {
	Source  string `json:"source"`
	Text    string `json:"text"`
	AddedAt int64  `json:"added_at"`
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlocks); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketBlocks, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func blockKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func decodeBlock(k, v []byte) (Block, error) {
	var rec blockRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return Block{}, err
	}
	return Block{
		ID:      int64(binary.BigEndian.Uint64(k)),
		Source:  rec.Source,
		Text:    rec.Text,
		Size:    len(rec.Text),
		AddedAt: time.Unix(rec.AddedAt, 0).UTC(),
	}, nil
}

// Add stores a new block under the next bucket sequence number.
func (s *BoltStore) Add(_ context.Context, source, text string) (Block, error) {
	addedAt := time.Now().UTC().Truncate(time.Second)
	var id int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		data, err := json.Marshal(blockRecord{Source: source, Text: text, AddedAt: addedAt.Unix()})
		if err != nil {
			return err
		}
		return b.Put(blockKey(id), data)
	})
	if err != nil {
		return Block{}, fmt.Errorf("could not insert block from '%s': %w", source, err)
	}
	return Block{ID: id, Source: source, Text: text, Size: len(text), AddedAt: addedAt}, nil
}

// Get returns a single block including its text.
func (s *BoltStore) Get(_ context.Context, id int64) (Block, error) {
	var block Block
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := blockKey(id)
		data := tx.Bucket(bucketBlocks).Get(key)
		if data == nil {
			return fmt.Errorf("block %d: %w", id, ErrBlockNotFound)
		}
		var err error
		block, err = decodeBlock(key, data)
		return err
	})
	return block, err
}

// Delete removes a block.
func (s *BoltStore) Delete(_ context.Context, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		key := blockKey(id)
		if b.Get(key) == nil {
			return fmt.Errorf("block %d: %w", id, ErrBlockNotFound)
		}
		return b.Delete(key)
	})
}

// List returns block metadata in insertion order.
func (s *BoltStore) List(_ context.Context) ([]Block, error) {
	blocks := make([]Block, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, v []byte) error {
			block, err := decodeBlock(k, v)
			if err != nil {
				return err
			}
			block.Text = ""
			blocks = append(blocks, block)
			return nil
		})
	})
	return blocks, err
}

// Texts calls fn with every block text in insertion order. fn runs inside a
// read transaction, so it must not write to the same store.
func (s *BoltStore) Texts(ctx context.Context, fn func(text string) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			block, err := decodeBlock(k, v)
			if err != nil {
				return err
			}
			return fn(block.Text)
		})
	})
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
