// Package memdb is an in-memory core.DocumentStore.
package memdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

type table map[string]core.Record

// DB keeps every collection in memory. Records are copied in and out.
type DB struct {
	sync.RWMutex
	tables map[string]table
}

var _ core.DocumentStore = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: make(map[string]table)}, nil
}

func (db *DB) Close() error { return nil }

func recordPath(path string) (coll, key string, err error) {
	coll, key, field, err := core.SplitPath(path)
	if err != nil {
		return "", "", err
	}
	if field != "" {
		return "", "", errors.Wrap(core.ErrInvalidPath, path)
	}
	return coll, key, nil
}

func (db *DB) Get(ctx context.Context, path string) (core.Record, error) {
	coll, key, err := recordPath(path)
	if err != nil {
		return nil, err
	}

	db.RLock()
	defer db.RUnlock()

	rec, ok := db.tables[coll][key]
	if !ok {
		return nil, core.ErrNoRecord
	}
	return core.NormalizeRecord(rec)
}

func (db *DB) List(ctx context.Context, collection string) (map[string]core.Record, error) {
	db.RLock()
	defer db.RUnlock()
	return db.filter(collection, func(core.Record) bool { return true })
}

func (db *DB) QueryEqual(ctx context.Context, collection, field string, value interface{}) (map[string]core.Record, error) {
	nv, err := core.NormalizeValue(value)
	if err != nil {
		return nil, err
	}

	db.RLock()
	defer db.RUnlock()
	return db.filter(collection, func(rec core.Record) bool {
		v, ok := rec[field]
		return ok && core.ValuesEqual(v, nv)
	})
}

func (db *DB) filter(collection string, keep func(core.Record) bool) (map[string]core.Record, error) {
	out := make(map[string]core.Record)
	for key, rec := range db.tables[collection] {
		if !keep(rec) {
			continue
		}
		cp, err := core.NormalizeRecord(rec)
		if err != nil {
			return nil, err
		}
		out[key] = cp
	}
	return out, nil
}

func (db *DB) Set(ctx context.Context, path string, rec core.Record) error {
	if _, _, err := recordPath(path); err != nil {
		return err
	}
	var v interface{}
	if rec != nil {
		v = rec
	}
	return db.UpdatePaths(ctx, map[string]interface{}{path: v})
}

func (db *DB) Update(ctx context.Context, path string, fields core.Record) error {
	if _, _, err := recordPath(path); err != nil {
		return err
	}
	updates := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		updates[core.Path(path, f)] = v
	}
	return db.UpdatePaths(ctx, updates)
}

func (db *DB) Push(ctx context.Context, collection string, rec core.Record) (string, error) {
	key := core.NewPushKey()
	if err := db.Set(ctx, core.Path(collection, key), rec); err != nil {
		return "", err
	}
	return key, nil
}

func (db *DB) Delete(ctx context.Context, path string) error {
	return db.UpdatePaths(ctx, map[string]interface{}{path: nil})
}

func (db *DB) UpdatePaths(ctx context.Context, updates map[string]interface{}) error {
	writes, err := core.PrepareWrites(updates)
	if err != nil {
		return err
	}

	db.Lock()
	defer db.Unlock()

	for _, w := range writes {
		db.apply(w)
	}
	return nil
}

func (db *DB) apply(w core.Write) {
	tbl, ok := db.tables[w.Collection]
	if !ok {
		tbl = make(table)
		db.tables[w.Collection] = tbl
	}

	var rec core.Record
	if w.Field == "" {
		if m, ok := w.Value.(map[string]interface{}); ok {
			rec = m
		}
	} else {
		rec = core.ApplyField(tbl[w.Key], w.Field, w.Value)
	}

	if len(rec) == 0 {
		delete(tbl, w.Key)
		return
	}
	tbl[w.Key] = rec
}
