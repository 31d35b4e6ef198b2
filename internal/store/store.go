package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/watchdone/watchdone/internal/docquery"
	"github.com/watchdone/watchdone/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketDocuments = []byte("documents")
)

// Cache is the local mirror of remote watchlist documents, backed by BoltDB.
// Keys are "{dataset}/{uid}/{docID}"; values are JSON-encoded documents.
// It implements domain.QueryRunner.
type Cache struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory

	// Memory-only mode stores documents here instead of BoltDB
	memory map[string][]byte
}

// NewCache opens the cache under baseCacheDir. Caches for different remotes
// live in separate subdirectories so switching databases never mixes data.
// An empty baseCacheDir gives a memory-only cache.
func NewCache(baseCacheDir, remoteURL string) (*Cache, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &Cache{memory: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if remoteURL != "" {
		dir = filepath.Join(baseCacheDir, hashRemoteURL(remoteURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "watchdone.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

func hashRemoteURL(remoteURL string) string {
	normalized := strings.TrimRight(strings.ToLower(remoteURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func collectionPrefix(coll domain.Collection) string {
	return string(coll.Dataset) + "/" + coll.UserID + "/"
}

func documentKey(coll domain.Collection, docID string) string {
	return collectionPrefix(coll) + docID
}

// Put stores or replaces documents in the collection.
func (c *Cache) Put(ctx context.Context, coll domain.Collection, docs ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make(map[string][]byte, len(docs))
	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		encoded[documentKey(coll, d.ID)] = data
	}

	if c.db == nil {
		c.mu.Lock()
		for k, v := range encoded {
			c.memory[k] = v
		}
		c.mu.Unlock()
		return nil
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		for k, v := range encoded {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes one document. Deleting a missing document is not an error.
func (c *Cache) Delete(ctx context.Context, coll domain.Collection, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := documentKey(coll, docID)

	if c.db == nil {
		c.mu.Lock()
		delete(c.memory, key)
		c.mu.Unlock()
		return nil
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(key))
	})
}

// Documents returns every cached document of the collection, keyed order.
func (c *Cache) Documents(ctx context.Context, coll domain.Collection) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := collectionPrefix(coll)
	var raw [][]byte

	if c.db == nil {
		c.mu.RLock()
		keys := make([]string, 0, len(c.memory))
		for k := range c.memory {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw = append(raw, c.memory[k])
		}
		c.mu.RUnlock()
	} else {
		err := c.db.View(func(tx *bolt.Tx) error {
			cur := tx.Bucket(bucketDocuments).Cursor()
			p := []byte(prefix)
			for k, v := cur.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = cur.Next() {
				data := make([]byte, len(v))
				copy(data, v)
				raw = append(raw, data)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, data := range raw {
		var d domain.Document
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode cached document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Run executes q over the cached documents of q's collection.
func (c *Cache) Run(ctx context.Context, q domain.QueryDescriptor) ([]domain.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	docs, err := c.Documents(ctx, q.Collection)
	if err != nil {
		return nil, err
	}
	return docquery.Apply(docs, q)
}

// InvalidateCollection wipes every cached document of one watchlist.
func (c *Cache) InvalidateCollection(coll domain.Collection) error {
	prefix := collectionPrefix(coll)

	if c.db == nil {
		c.mu.Lock()
		for k := range c.memory {
			if strings.HasPrefix(k, prefix) {
				delete(c.memory, k)
			}
		}
		c.mu.Unlock()
		return nil
	}

	// Delete using prefix scan; collect first since deleting moves the cursor
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		var keys [][]byte
		cur := b.Cursor()
		for k, _ := cur.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = cur.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// InvalidateAll wipes the whole cache.
func (c *Cache) InvalidateAll() error {
	if c.db == nil {
		c.mu.Lock()
		c.memory = make(map[string][]byte)
		c.mu.Unlock()
		return nil
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocuments); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketDocuments)
		return err
	})
}
