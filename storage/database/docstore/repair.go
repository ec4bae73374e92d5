package docstore

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

// Fix describes a stored record whose values had to be coerced on read.
type Fix struct {
	Path   string
	Fields []string
}

// Repair rewrites every coerced value across users, marks and subjects with its proper type,
// in one multi-path write. Invalid records are reported in skipped and left alone.
// With dryRun nothing is written.
func Repair(ctx context.Context, store core.DocumentStore, dryRun bool) (fixes []Fix, skipped []error, err error) {
	type decodeFunc func(key string, rec core.Record) (core.Record, []string, error)

	collections := []struct {
		name   string
		decode decodeFunc
	}{
		{core.UsersCollection, func(key string, rec core.Record) (core.Record, []string, error) {
			usr, coerced, err := decodeUser(key, rec)
			return encodeUser(usr), coerced, err
		}},
		{core.MarksCollection, func(key string, rec core.Record) (core.Record, []string, error) {
			m, coerced, err := decodeMark(key, rec)
			return encodeMark(m), coerced, err
		}},
		{core.SubjectsCollection, func(key string, rec core.Record) (core.Record, []string, error) {
			sub, coerced, err := decodeSubject(key, rec)
			return encodeSubject(sub), coerced, err
		}},
	}

	updates := make(map[string]interface{})
	for _, coll := range collections {
		recs, err := store.List(ctx, coll.name)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "listing %s", coll.name)
		}
		for _, key := range sortedKeys(recs) {
			fixed, coerced, err := coll.decode(key, recs[key])
			if err != nil {
				skipped = append(skipped, err)
				continue
			}
			if len(coerced) == 0 {
				continue
			}
			path := core.Path(coll.name, key)
			fields := uniq(coerced)
			for _, f := range fields {
				updates[core.Path(path, f)] = fixed[f]
			}
			fixes = append(fixes, Fix{Path: path, Fields: fields})
		}
	}

	if dryRun || len(updates) == 0 {
		return fixes, skipped, nil
	}
	if err := store.UpdatePaths(ctx, updates); err != nil {
		return nil, skipped, errors.Wrap(err, "writing fixes")
	}
	return fixes, skipped, nil
}

func uniq(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
