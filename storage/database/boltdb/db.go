// Package boltdb is a core.DocumentStore kept in a bbolt file: one bucket per collection, JSON values.
package boltdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/alama/core"
)

var defaultBuckets = []string{core.UsersCollection, core.MarksCollection, core.SubjectsCollection}

type DB struct {
	db *bbolt.DB
}

var _ core.DocumentStore = (*DB)(nil) // interface compliance check

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range defaultBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &DB{db: db}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

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

func decode(data []byte) (core.Record, error) {
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return rec, nil
}

func (s *DB) Get(ctx context.Context, path string) (core.Record, error) {
	coll, key, err := recordPath(path)
	if err != nil {
		return nil, err
	}

	var rec core.Record
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(coll))
		if b == nil {
			return core.ErrNoRecord
		}
		v := b.Get([]byte(key))
		if v == nil {
			return core.ErrNoRecord
		}
		rec, err = decode(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DB) List(ctx context.Context, collection string) (map[string]core.Record, error) {
	return s.filter(collection, func(core.Record) bool { return true })
}

func (s *DB) QueryEqual(ctx context.Context, collection, field string, value interface{}) (map[string]core.Record, error) {
	nv, err := core.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	return s.filter(collection, func(rec core.Record) bool {
		v, ok := rec[field]
		return ok && core.ValuesEqual(v, nv)
	})
}

func (s *DB) filter(collection string, keep func(core.Record) bool) (map[string]core.Record, error) {
	out := make(map[string]core.Record)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return errors.Wrapf(err, "%s/%s", collection, k)
			}
			if keep(rec) {
				out[string(k)] = rec
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DB) Set(ctx context.Context, path string, rec core.Record) error {
	if _, _, err := recordPath(path); err != nil {
		return err
	}
	var v interface{}
	if rec != nil {
		v = rec
	}
	return s.UpdatePaths(ctx, map[string]interface{}{path: v})
}

func (s *DB) Update(ctx context.Context, path string, fields core.Record) error {
	if _, _, err := recordPath(path); err != nil {
		return err
	}
	updates := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		updates[core.Path(path, f)] = v
	}
	return s.UpdatePaths(ctx, updates)
}

func (s *DB) Push(ctx context.Context, collection string, rec core.Record) (string, error) {
	key := core.NewPushKey()
	if err := s.Set(ctx, core.Path(collection, key), rec); err != nil {
		return "", err
	}
	return key, nil
}

func (s *DB) Delete(ctx context.Context, path string) error {
	return s.UpdatePaths(ctx, map[string]interface{}{path: nil})
}

// UpdatePaths applies every write in a single bbolt transaction.
func (s *DB) UpdatePaths(ctx context.Context, updates map[string]interface{}) error {
	writes, err := core.PrepareWrites(updates)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, w := range writes {
			if err := apply(tx, w); err != nil {
				return errors.Wrapf(err, "writing %s/%s", w.Collection, w.Key)
			}
		}
		return nil
	})
}

func apply(tx *bbolt.Tx, w core.Write) error {
	b, err := tx.CreateBucketIfNotExists([]byte(w.Collection))
	if err != nil {
		return err
	}

	var rec core.Record
	if w.Field == "" {
		if m, ok := w.Value.(map[string]interface{}); ok {
			rec = m
		}
	} else {
		if v := b.Get([]byte(w.Key)); v != nil {
			if rec, err = decode(v); err != nil {
				return err
			}
		}
		rec = core.ApplyField(rec, w.Field, w.Value)
	}

	if len(rec) == 0 {
		return b.Delete([]byte(w.Key))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(w.Key), data)
}
