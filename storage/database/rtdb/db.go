// Package rtdb is a core.DocumentStore backed by the Firebase Realtime Database.
//
// Equality queries need an index per queried field in the database rules:
//
//	"users":    {".indexOn": ["grade"]},
//	"marks":    {".indexOn": ["studentId", "subjectId"]}
package rtdb

import (
	"context"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

type DB struct {
	client *db.Client
}

var _ core.DocumentStore = (*DB)(nil) // interface compliance check

func Open(ctx context.Context, app *firebase.App) (*DB, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing database client")
	}
	return &DB{client: client}, nil
}

func (s *DB) Close() error { return nil }

func recordPath(path string) error {
	_, _, field, err := core.SplitPath(path)
	if err != nil {
		return err
	}
	if field != "" {
		return errors.Wrap(core.ErrInvalidPath, path)
	}
	return nil
}

func (s *DB) Get(ctx context.Context, path string) (core.Record, error) {
	if err := recordPath(path); err != nil {
		return nil, err
	}
	var rec core.Record
	if err := s.client.NewRef(path).Get(ctx, &rec); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if rec == nil {
		return nil, core.ErrNoRecord
	}
	return rec, nil
}

func (s *DB) List(ctx context.Context, collection string) (map[string]core.Record, error) {
	var raw interface{}
	if err := s.client.NewRef(collection).Get(ctx, &raw); err != nil {
		return nil, errors.Wrapf(err, "reading %s", collection)
	}
	return records(raw), nil
}

func (s *DB) QueryEqual(ctx context.Context, collection, field string, value interface{}) (map[string]core.Record, error) {
	var raw interface{}
	q := s.client.NewRef(collection).OrderByChild(field).EqualTo(value)
	if err := q.Get(ctx, &raw); err != nil {
		return nil, errors.Wrapf(err, "querying %s by %s", collection, field)
	}
	return records(raw), nil
}

// records keeps the children of a collection node that are objects; anything else cannot be a record.
// The database answers with an array when the keys are 0, 1, 2...: the index is the key and holes are null.
func records(raw interface{}) map[string]core.Record {
	out := make(map[string]core.Record)
	switch children := raw.(type) {
	case map[string]interface{}:
		for key, v := range children {
			if m, ok := v.(map[string]interface{}); ok {
				out[key] = m
			}
		}
	case []interface{}:
		for i, v := range children {
			if m, ok := v.(map[string]interface{}); ok {
				out[strconv.Itoa(i)] = m
			}
		}
	}
	return out
}

func (s *DB) Set(ctx context.Context, path string, rec core.Record) error {
	if err := recordPath(path); err != nil {
		return err
	}
	if rec == nil {
		return s.Delete(ctx, path)
	}
	return errors.Wrapf(s.client.NewRef(path).Set(ctx, rec), "writing %s", path)
}

func (s *DB) Update(ctx context.Context, path string, fields core.Record) error {
	if err := recordPath(path); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return errors.Wrapf(s.client.NewRef(path).Update(ctx, fields), "updating %s", path)
}

func (s *DB) Push(ctx context.Context, collection string, rec core.Record) (string, error) {
	ref, err := s.client.NewRef(collection).Push(ctx, rec)
	if err != nil {
		return "", errors.Wrapf(err, "pushing to %s", collection)
	}
	return ref.Key, nil
}

func (s *DB) Delete(ctx context.Context, path string) error {
	if _, _, _, err := core.SplitPath(path); err != nil {
		return err
	}
	return errors.Wrapf(s.client.NewRef(path).Delete(ctx), "deleting %s", path)
}

// UpdatePaths sends every write in one multi-path update of the root; the database applies it atomically.
func (s *DB) UpdatePaths(ctx context.Context, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	for path := range updates {
		if _, _, _, err := core.SplitPath(path); err != nil {
			return err
		}
	}
	return errors.Wrap(s.client.NewRef("/").Update(ctx, updates), "multi-path update")
}
