package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/dshills/launchsearch/pkg/types"
)

// Key prefixes for the badger backend
const (
	itemPrefix     = "item:"
	favoritePrefix = "fav:"
	tagPrefix      = "tag:"
	tagItemPrefix  = "tagitem:"
	historyPrefix  = "hist:"
	tagIDSeq       = "seq:tag"
	historyIDSeq   = "seq:hist"

	defaultSequenceBandwidth = 100
)

// BadgerStorage implements Storage on an embedded BadgerDB key-value store
type BadgerStorage struct {
	db      *badger.DB
	tagSeq  *badger.Sequence
	histSeq *badger.Sequence
	logger  *slog.Logger
}

var _ Storage = (*BadgerStorage)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// NewBadgerStorage opens a badger database in dir. An empty dir opens an in-memory store.
func NewBadgerStorage(dir string, logger *slog.Logger) (*BadgerStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger.With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	tagSeq, err := db.GetSequence([]byte(tagIDSeq), defaultSequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	histSeq, err := db.GetSequence([]byte(historyIDSeq), defaultSequenceBandwidth)
	if err != nil {
		_ = tagSeq.Release()
		_ = db.Close()
		return nil, err
	}

	return &BadgerStorage{db: db, tagSeq: tagSeq, histSeq: histSeq, logger: logger}, nil
}

// Close releases the sequences and closes the database
func (b *BadgerStorage) Close() error {
	err := errors.Join(b.tagSeq.Release(), b.histSeq.Release())
	return errors.Join(err, b.db.Close())
}

// itemRecord is the JSON value stored under item:<key>.
// Weight stays raw so unreadable values degrade to "no weight".
type itemRecord struct {
	Kind        types.ItemKind  `json:"kind"`
	Data        string          `json:"data,omitempty"`
	LaunchCount int             `json:"launch_count"`
	PinPosition *int            `json:"pin_position,omitempty"`
	Hidden      bool            `json:"hidden"`
	Weight      json.RawMessage `json:"weight,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r itemRecord) toItem(key string) *Item {
	item := &Item{
		Key:         key,
		Kind:        r.Kind,
		Data:        r.Data,
		LaunchCount: r.LaunchCount,
		PinPosition: r.PinPosition,
		Hidden:      r.Hidden,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	var w float64
	if len(r.Weight) > 0 && json.Unmarshal(r.Weight, &w) == nil {
		item.Weight = &w
	}
	return item
}

func encodeWeight(w *float64) json.RawMessage {
	if w == nil {
		return nil
	}
	raw, err := json.Marshal(*w)
	if err != nil {
		// NaN and Inf cannot be encoded; store them as missing.
		return nil
	}
	return raw
}

func getItemRecord(txn *badger.Txn, key string) (itemRecord, error) {
	var rec itemRecord
	entry, err := txn.Get([]byte(itemPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	err = entry.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// Item operations

func (b *BadgerStorage) GetItem(ctx context.Context, key string) (*Item, error) {
	var item *Item
	err := b.db.View(func(txn *badger.Txn) error {
		rec, err := getItemRecord(txn, key)
		if err != nil {
			return err
		}
		item = rec.toItem(key)
		return nil
	})
	return item, err
}

func (b *BadgerStorage) CreateItem(ctx context.Context, item *Item) error {
	if item.Key == "" {
		return types.ErrEmptyKey
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, item.Kind)
	}

	now := time.Now()
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := getItemRecord(txn, item.Key)
		if err == nil {
			return fmt.Errorf("item %s: %w", item.Key, ErrAlreadyExists)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return setJSON(txn, []byte(itemPrefix+item.Key), itemRecord{
			Kind:        item.Kind,
			Data:        item.Data,
			LaunchCount: item.LaunchCount,
			PinPosition: item.PinPosition,
			Hidden:      item.Hidden,
			Weight:      encodeWeight(item.Weight),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (b *BadgerStorage) UpdateItemUsage(ctx context.Context, key string, launchCount int, weight float64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		rec, err := getItemRecord(txn, key)
		if err != nil {
			return err
		}
		rec.LaunchCount = launchCount
		rec.Weight = encodeWeight(&weight)
		rec.UpdatedAt = time.Now()
		return setJSON(txn, []byte(itemPrefix+key), rec)
	})
}

func (b *BadgerStorage) SetHidden(ctx context.Context, key string, kind types.ItemKind, hidden bool) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		now := time.Now()
		rec, err := getItemRecord(txn, key)
		if errors.Is(err, ErrNotFound) {
			rec = itemRecord{Kind: kind, CreatedAt: now}
		} else if err != nil {
			return err
		}
		rec.Hidden = hidden
		rec.UpdatedAt = now
		return setJSON(txn, []byte(itemPrefix+key), rec)
	})
}

func (b *BadgerStorage) ListItems(ctx context.Context) ([]*Item, error) {
	var items []*Item
	err := b.scanPrefix(itemPrefix, func(key, val []byte) error {
		var rec itemRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			b.logger.Warn("skipping unreadable item", "key", string(key), "err", err)
			return nil
		}
		items = append(items, rec.toItem(strings.TrimPrefix(string(key), itemPrefix)))
		return nil
	})
	return items, err
}

// scanPrefix calls fn for every key under prefix in key order
func (b *BadgerStorage) scanPrefix(prefix string, fn func(key, val []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			entry := iter.Item()
			key := entry.KeyCopy(nil)
			if err := entry.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Favorite operations

func (b *BadgerStorage) AddFavorite(ctx context.Context, key string) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	favorites, err := b.ListFavorites(ctx)
	if err != nil {
		return err
	}
	next := 0
	for _, f := range favorites {
		if f.Key == key {
			return nil
		}
		if f.Position >= next {
			next = f.Position + 1
		}
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(favoritePrefix+key), Favorite{Key: key, Position: next})
	})
}

func (b *BadgerStorage) RemoveFavorite(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(favoritePrefix + key))
	})
}

func (b *BadgerStorage) ListFavorites(ctx context.Context) ([]Favorite, error) {
	var favorites []Favorite
	err := b.scanPrefix(favoritePrefix, func(_, val []byte) error {
		var f Favorite
		if err := json.Unmarshal(val, &f); err != nil {
			return err
		}
		favorites = append(favorites, f)
		return nil
	})
	sort.SliceStable(favorites, func(i, j int) bool {
		return favorites[i].Position < favorites[j].Position
	})
	return favorites, err
}

// Tag operations

func makeTagKey(id int64) []byte {
	buf := make([]byte, len(tagPrefix)+8)
	n := copy(buf, tagPrefix)
	binary.BigEndian.PutUint64(buf[n:], uint64(id))
	return buf
}

func makeTagItemPrefix(tagID int64) []byte {
	buf := make([]byte, len(tagItemPrefix)+9)
	n := copy(buf, tagItemPrefix)
	binary.BigEndian.PutUint64(buf[n:], uint64(tagID))
	buf[n+8] = ':'
	return buf
}

func (b *BadgerStorage) CreateTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tag name cannot be empty")
	}

	existing, err := b.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if t.Name == name {
			return nil, fmt.Errorf("tag %s: %w", name, ErrAlreadyExists)
		}
	}

	id, err := b.tagSeq.Next()
	if err != nil {
		return nil, err
	}
	tag := &Tag{ID: int64(id) + 1, Name: name, CreatedAt: time.Now()}
	err = b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, makeTagKey(tag.ID), tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (b *BadgerStorage) ListTags(ctx context.Context) ([]*Tag, error) {
	var tags []*Tag
	err := b.scanPrefix(tagPrefix, func(_, val []byte) error {
		var t Tag
		if err := json.Unmarshal(val, &t); err != nil {
			return err
		}
		tags = append(tags, &t)
		return nil
	})
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, err
}

func (b *BadgerStorage) TagItem(ctx context.Context, tagID int64, key string) error {
	if key == "" {
		return types.ErrEmptyKey
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(makeTagKey(tagID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Set(append(makeTagItemPrefix(tagID), key...), nil)
	})
}

func (b *BadgerStorage) UntagItem(ctx context.Context, tagID int64, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(append(makeTagItemPrefix(tagID), key...))
	})
}

func (b *BadgerStorage) ListTagMembers(ctx context.Context, tagID int64) ([]string, error) {
	prefix := makeTagItemPrefix(tagID)
	var keys []string
	err := b.scanPrefix(string(prefix), func(key, _ []byte) error {
		keys = append(keys, string(bytes.TrimPrefix(key, prefix)))
		return nil
	})
	return keys, err
}

// History operations

// makeHistoryKey orders entries by time, then by id for equal timestamps
func makeHistoryKey(at time.Time, id uint64) []byte {
	buf := make([]byte, len(historyPrefix)+16)
	n := copy(buf, historyPrefix)
	binary.BigEndian.PutUint64(buf[n:], uint64(at.UnixMicro()))
	binary.BigEndian.PutUint64(buf[n+8:], id)
	return buf
}

func (b *BadgerStorage) RecordQuery(ctx context.Context, query string, at time.Time) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	id, err := b.histSeq.Next()
	if err != nil {
		return err
	}
	entry := HistoryEntry{ID: int64(id) + 1, Query: query, Timestamp: at.UTC()}
	return b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, makeHistoryKey(at, id), entry)
	})
}

func (b *BadgerStorage) ListRecentQueries(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []HistoryEntry
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(historyPrefix)
		opts.Reverse = true
		iter := txn.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration must seek past the last possible key under the prefix.
		seek := append([]byte(historyPrefix), bytes.Repeat([]byte{0xff}, 16)...)
		for iter.Seek(seek); iter.Valid() && len(entries) < limit; iter.Next() {
			var e HistoryEntry
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}
