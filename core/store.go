package core

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Collections
const (
	UsersCollection    = "users"
	MarksCollection    = "marks"
	SubjectsCollection = "subjects"

	// MaintenanceCollection holds checkpoints written by the admin tool.
	MaintenanceCollection = "_maintenance"
	// CredentialsCollection holds the password hashes of the local authenticator.
	CredentialsCollection = "_credentials"
)

var (
	ErrNoRecord    = errors.New("record not found")
	ErrInvalidPath = errors.New("invalid record path")
)

// Record is a schema-less stored document. Values are JSON types: numbers are float64 on read.
type Record map[string]interface{}

type (
	// DocumentStore is a hosted or embedded key-path document store.
	// Paths are "collection/key" or "collection/key/field".
	DocumentStore interface {
		// Get returns ErrNoRecord if nothing is stored at path.
		Get(ctx context.Context, path string) (Record, error)
		List(ctx context.Context, collection string) (map[string]Record, error)
		// QueryEqual returns every record of the collection whose field equals value.
		QueryEqual(ctx context.Context, collection, field string, value interface{}) (map[string]Record, error)
		Set(ctx context.Context, path string, rec Record) error
		// Update merges fields into the record at path.
		Update(ctx context.Context, path string, fields Record) error
		// Push stores rec under a new unique key and returns the key.
		Push(ctx context.Context, collection string, rec Record) (string, error)
		Delete(ctx context.Context, path string) error
		// UpdatePaths applies every write atomically: all of them or none. A nil value deletes the path.
		UpdatePaths(ctx context.Context, updates map[string]interface{}) error
		Close() error
	}
)

// Path joins path segments.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitPath splits a record path into its collection, key and optional field.
func SplitPath(path string) (collection, key, field string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, p := range parts {
		if p == "" {
			return "", "", "", errors.Wrap(ErrInvalidPath, path)
		}
	}
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", errors.Wrap(ErrInvalidPath, path)
	}
}

// NormalizeValue converts v to its JSON form (maps, slices, float64, string, bool, nil).
func NormalizeValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling value")
	}
	var out interface{}
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshalling value")
	}
	return out, nil
}

// NormalizeRecord converts rec to its JSON form.
func NormalizeRecord(rec Record) (Record, error) {
	v, err := NormalizeValue(rec)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	return Record(m), nil
}

// ValuesEqual compares two normalized values. The number 3 does not equal the string "3".
func ValuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// NewPushKey returns a unique key that sorts by creation time.
func NewPushKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ApplyField writes value at field of rec. A nil value removes the field.
// It returns nil once the record has no field left.
func ApplyField(rec Record, field string, value interface{}) Record {
	if value == nil {
		delete(rec, field)
		if len(rec) == 0 {
			return nil
		}
		return rec
	}
	if rec == nil {
		rec = make(Record)
	}
	rec[field] = value
	return rec
}

// Write is one checked write of a multi-path update.
type Write struct {
	Collection string
	Key        string
	Field      string      // empty for a whole record
	Value      interface{} // normalized; nil deletes
}

// PrepareWrites checks and normalizes multi-path updates. Whole-record writes come first
// so that field writes to the same record apply on top of them.
func PrepareWrites(updates map[string]interface{}) ([]Write, error) {
	writes := make([]Write, 0, len(updates))
	for path, v := range updates {
		coll, key, field, err := SplitPath(path)
		if err != nil {
			return nil, err
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		if field == "" && nv != nil {
			if _, ok := nv.(map[string]interface{}); !ok {
				return nil, errors.Wrapf(ErrInvalidPath, "%s: records must be objects", path)
			}
		}
		writes = append(writes, Write{Collection: coll, Key: key, Field: field, Value: nv})
	}
	sort.SliceStable(writes, func(i, j int) bool { return writes[i].Field == "" && writes[j].Field != "" })
	return writes, nil
}
