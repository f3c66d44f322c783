// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/parley/storage"
)

// Item is a stored record: attribute name to value. Values are strings or
// bools. A missing attribute is absent, never null.
type Item map[string]any

// String returns a string attribute and whether it is present.
func (it Item) String(name string) (string, bool) {
	s, ok := it[name].(string)
	return s, ok
}

// TableStatus is the lifecycle state of a table.
type TableStatus string

const (
	TableStatusCreating TableStatus = "CREATING"
	TableStatusActive   TableStatus = "ACTIVE"
)

// IndexSchema declares a secondary index. Every index projects all
// attributes. SortKey is empty for hash-only indexes.
type IndexSchema struct {
	Name         string `json:"name"`
	PartitionKey string `json:"partitionKey"`
	SortKey      string `json:"sortKey,omitempty"`
}

// TableSchema declares a table, its primary key attribute and its indexes.
type TableSchema struct {
	Name         string        `json:"name"`
	PartitionKey string        `json:"partitionKey"`
	Indexes      []IndexSchema `json:"indexes,omitempty"`
}

// Index returns the named index, or nil.
func (s TableSchema) Index(name string) *IndexSchema {
	for i := range s.Indexes {
		if s.Indexes[i].Name == name {
			return &s.Indexes[i]
		}
	}
	return nil
}

// TableDescription is the catalog entry of a table.
type TableDescription struct {
	TableSchema
	Status    TableStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SortCondition restricts the sort key of a Query.
type SortCondition int

const (
	// SortAny matches every sort key.
	SortAny SortCondition = iota
	// SortEqual matches entries whose sort key equals SortValue.
	SortEqual
	// SortLess matches entries whose sort key is strictly less than SortValue.
	SortLess
)

// QueryInput selects items through a secondary index.
type QueryInput struct {
	Index          string
	PartitionValue string
	SortCondition  SortCondition
	SortValue      string
	// Descending walks the index from the highest sort key down.
	Descending bool
	// Limit caps the number of items returned. Zero means no cap.
	Limit int
}

func (b *Backend) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// CreateTable registers a table. The table is CREATING while index entries
// for any items already stored under its name are built, then ACTIVE.
func (b *Backend) CreateTable(ctx context.Context, schema TableSchema) error {
	if err := b.checkOpen(ctx); err != nil {
		return err
	}
	if schema.Name == "" || schema.PartitionKey == "" {
		return fmt.Errorf("%w: table needs a name and partition key", storage.ErrInvalidQuery)
	}
	if _, err := b.readDescription(schema.Name); err == nil {
		return fmt.Errorf("%w: %s", storage.ErrTableExists, schema.Name)
	} else if !errors.Is(err, storage.ErrTableNotFound) {
		return err
	}

	desc := &TableDescription{
		TableSchema: schema,
		Status:      TableStatusCreating,
		CreatedAt:   time.Now().UTC(),
	}
	if err := b.writeDescription(desc); err != nil {
		return err
	}

	items, err := b.scanItems(ctx, schema.Name)
	if err != nil {
		return err
	}
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if err := b.writeIndexEntries(&desc.TableSchema, nil, item, data); err != nil {
			return err
		}
	}

	desc.Status = TableStatusActive
	if err := b.writeDescription(desc); err != nil {
		return err
	}
	b.logger.Debug("table created", "table", schema.Name, "indexes", len(schema.Indexes), "backfilled", len(items))
	return nil
}

// DescribeTable returns the catalog entry of a table, or ErrTableNotFound.
func (b *Backend) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	if err := b.checkOpen(ctx); err != nil {
		return nil, err
	}
	if cached, ok := b.tables.Load(name); ok {
		return cached.(*TableDescription), nil
	}
	return b.readDescription(name)
}

// activeTable returns the schema of a table that accepts reads and writes.
func (b *Backend) activeTable(ctx context.Context, name string) (*TableSchema, error) {
	desc, err := b.DescribeTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if desc.Status != TableStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", storage.ErrTableNotActive, name, desc.Status)
	}
	return &desc.TableSchema, nil
}

func (b *Backend) readDescription(name string) (*TableDescription, error) {
	var desc TableDescription
	err := b.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeTableKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
			}
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &desc)
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if desc.Status == TableStatusActive {
		b.tables.Store(name, &desc)
	}
	return &desc, nil
}

func (b *Backend) writeDescription(desc *TableDescription) error {
	data, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	if err := b.set(makeTableKey(desc.Name), data); err != nil {
		return err
	}
	if desc.Status == TableStatusActive {
		cached := *desc
		b.tables.Store(desc.Name, &cached)
	}
	return nil
}

// GetItem returns the item with the given partition key, or nil if there
// is none.
func (b *Backend) GetItem(ctx context.Context, table, pk string) (Item, error) {
	if _, err := b.activeTable(ctx, table); err != nil {
		return nil, err
	}
	return b.getItem(table, pk)
}

func (b *Backend) getItem(table, pk string) (Item, error) {
	var item Item
	err := b.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeItemKey(table, pk))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return entry.Value(func(val []byte) error {
			var err error
			item, err = decodeItem(val)
			return err
		})
	}, false)
	return item, err
}

// PutItem stores an item, overwriting any item with the same partition
// key, then brings every index entry of the item up to date. Each physical
// write commits on its own; a failure part way leaves the writes before it
// in place.
func (b *Backend) PutItem(ctx context.Context, table string, item Item) error {
	schema, err := b.activeTable(ctx, table)
	if err != nil {
		return err
	}
	pk, ok := item.String(schema.PartitionKey)
	if !ok || pk == "" {
		return fmt.Errorf("%w: item has no %s", storage.ErrInvalidQuery, schema.PartitionKey)
	}

	previous, err := b.getItem(table, pk)
	if err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if err := b.set(makeItemKey(table, pk), data); err != nil {
		return err
	}
	return b.writeIndexEntries(schema, previous, item, data)
}

// writeIndexEntries replaces the index entries of previous with those of
// item, whose encoded form is data. previous may be nil.
func (b *Backend) writeIndexEntries(schema *TableSchema, previous, item Item, data []byte) error {
	pk, _ := item.String(schema.PartitionKey)
	for i := range schema.Indexes {
		index := &schema.Indexes[i]
		newKey := indexEntryKey(schema, index, item, pk)
		if previous != nil {
			oldKey := indexEntryKey(schema, index, previous, pk)
			if oldKey != nil && !bytes.Equal(oldKey, newKey) {
				if err := b.remove(oldKey); err != nil {
					return fmt.Errorf("removing stale %s entry: %w", index.Name, err)
				}
			}
		}
		if newKey == nil {
			continue
		}
		if err := b.set(newKey, data); err != nil {
			return fmt.Errorf("writing %s entry: %w", index.Name, err)
		}
	}
	return nil
}

// indexEntryKey returns the key of item's entry in index, or nil when item
// lacks one of the index key attributes.
func indexEntryKey(schema *TableSchema, index *IndexSchema, item Item, pk string) []byte {
	pv, ok := item.String(index.PartitionKey)
	if !ok {
		return nil
	}
	if index.SortKey == "" {
		return makeIndexEntryKey(schema.Name, index.Name, pv, nil, pk)
	}
	sv, ok := item.String(index.SortKey)
	if !ok {
		return nil
	}
	return makeIndexEntryKey(schema.Name, index.Name, pv, &sv, pk)
}

// DeleteItem removes an item and its index entries. Deleting a missing item
// is not an error.
func (b *Backend) DeleteItem(ctx context.Context, table, pk string) error {
	schema, err := b.activeTable(ctx, table)
	if err != nil {
		return err
	}
	previous, err := b.getItem(table, pk)
	if err != nil || previous == nil {
		return err
	}
	if err := b.remove(makeItemKey(table, pk)); err != nil {
		return err
	}
	for i := range schema.Indexes {
		key := indexEntryKey(schema, &schema.Indexes[i], previous, pk)
		if key == nil {
			continue
		}
		if err := b.remove(key); err != nil {
			return fmt.Errorf("removing %s entry: %w", schema.Indexes[i].Name, err)
		}
	}
	return nil
}

// Scan returns every item of a table in partition key order.
func (b *Backend) Scan(ctx context.Context, table string) ([]Item, error) {
	if _, err := b.activeTable(ctx, table); err != nil {
		return nil, err
	}
	return b.scanItems(ctx, table)
}

func (b *Backend) scanItems(ctx context.Context, table string) ([]Item, error) {
	var items []Item
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeItemPrefix(table)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item Item
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = decodeItem(val)
				return err
			}); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	}, false)
	return items, err
}

// Query returns the items of one index partition in sort key order (then
// partition key order), filtered by the sort condition.
func (b *Backend) Query(ctx context.Context, table string, in QueryInput) ([]Item, error) {
	schema, err := b.activeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	index := schema.Index(in.Index)
	if index == nil {
		return nil, fmt.Errorf("%w: table %s has no index %q", storage.ErrInvalidQuery, table, in.Index)
	}
	if in.SortCondition != SortAny && index.SortKey == "" {
		return nil, fmt.Errorf("%w: index %s has no sort key", storage.ErrInvalidQuery, index.Name)
	}
	if in.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", storage.ErrInvalidQuery)
	}

	partition := makeIndexPartitionKey(table, index.Name, in.PartitionValue)
	prefix := partition
	if in.SortCondition == SortEqual {
		prefix = makeIndexSortPrefix(partition, in.SortValue)
	}

	var seek []byte
	switch {
	case !in.Descending:
		seek = prefix
	case in.SortCondition == SortLess:
		seek = append(append([]byte{}, partition...), in.SortValue...)
	default:
		seek = seekPastPrefix(prefix)
	}

	var items []Item
	err = b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = in.Descending
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seek); iter.Valid(); iter.Next() {
			if in.Limit > 0 && len(items) >= in.Limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var item Item
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = decodeItem(val)
				return err
			}); err != nil {
				return err
			}
			// Key values may themselves contain the separator, so the
			// prefix alone does not pin the partition.
			if pv, _ := item.String(index.PartitionKey); pv != in.PartitionValue {
				continue
			}
			if in.SortCondition == SortEqual {
				if sv, _ := item.String(index.SortKey); sv != in.SortValue {
					continue
				}
			}
			if in.SortCondition == SortLess {
				sv, _ := item.String(index.SortKey)
				if sv >= in.SortValue {
					if in.Descending {
						continue
					}
					break
				}
			}
			items = append(items, item)
		}
		return nil
	}, false)
	return items, err
}

func decodeItem(data []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return item, nil
}
