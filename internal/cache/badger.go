package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

var keyPrefix = []byte("resp/")

// BadgerConfig configures the badger backend.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	DefaultTTL time.Duration
	Clock      Clock
}

// Badger is a Store backed by an embedded badger database. Entries carry
// both an envelope timestamp and a badger TTL so the engine also
// garbage-collects them.
type Badger struct {
	db         *badger.DB
	now        Clock
	defaultTTL time.Duration
	closed     atomic.Bool
}

type envelope struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	TTL       int64     `json:"ttl"`
}

func (e envelope) toEntry() entry {
	return entry{value: e.Value, createdAt: e.CreatedAt, ttl: time.Duration(e.TTL)}
}

// OpenBadger opens (or creates) a badger-backed cache.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cache: badger path is required when not in memory")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	b := &Badger{db: db, now: cfg.Clock, defaultTTL: cfg.DefaultTTL}
	if b.now == nil {
		b.now = time.Now
	}
	if b.defaultTTL <= 0 {
		b.defaultTTL = DefaultTTL
	}
	return b, nil
}

func badgerKey(key string) []byte {
	return append(append([]byte{}, keyPrefix...), key...)
}

func (b *Badger) Get(key string) ([]byte, bool, error) {
	if b.closed.Load() {
		return nil, false, ErrClosed
	}

	var env envelope
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if env.toEntry().expired(b.now()) {
		if err := b.Delete(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return env.Value, true, nil
}

func (b *Badger) Set(key string, value []byte, ttl time.Duration) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = b.defaultTTL
	}

	data, err := json.Marshal(envelope{Value: value, CreatedAt: b.now(), TTL: int64(ttl)})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		// Badger expiry has second granularity; round up so the
		// envelope check stays authoritative.
		return txn.SetEntry(badger.NewEntry(badgerKey(key), data).WithTTL(ttl + time.Second))
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (b *Badger) Delete(key string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (b *Badger) Sweep() (int, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	now := b.now()

	var expired [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				// Undecodable entries are dropped too.
				expired = append(expired, item.KeyCopy(nil))
				continue
			}
			if env.toEntry().expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache sweep scan: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("cache sweep delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("cache sweep flush: %w", err)
	}
	return len(expired), nil
}

func (b *Badger) Len() int {
	if b.closed.Load() {
		return 0
	}
	n := 0
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Close releases the underlying database.
func (b *Badger) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.db.Close()
}
