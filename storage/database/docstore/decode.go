// Package docstore implements the domain repositories over a core.DocumentStore.
//
// Stored records are schema-less: every read goes through a decoder which rejects records
// missing required fields and coerces values stored with the wrong type (e.g. a grade saved as "3").
package docstore

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/alama/core"
)

// maxInteger is the largest integer a stored number holds exactly.
const maxInteger = 1 << 53

type decoder struct {
	path    string
	rec     core.Record
	coerced []string
}

func newDecoder(path string, rec core.Record) *decoder {
	return &decoder{path: path, rec: rec}
}

func (d *decoder) fail(field, reason string) error {
	return &core.RecordError{Path: d.path, Field: field, Reason: reason}
}

func (d *decoder) str(field string, required bool) (string, error) {
	v, ok := d.rec[field]
	if !ok || v == nil {
		if required {
			return "", d.fail(field, "is missing")
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", d.fail(field, "is blank")
		}
		return val, nil
	case float64:
		d.coerced = append(d.coerced, field)
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	}
	return "", d.fail(field, "is not a string")
}

// integer returns the value of field and whether it is present.
func (d *decoder) integer(field string, required bool) (int64, bool, error) {
	v, ok := d.rec[field]
	if !ok || v == nil {
		if required {
			return 0, false, d.fail(field, "is missing")
		}
		return 0, false, nil
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false, d.fail(field, "is not a number")
		}
		d.coerced = append(d.coerced, field)
		f = parsed
	default:
		return 0, false, d.fail(field, "is not a number")
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, d.fail(field, "is not an integer")
	}
	if math.Abs(f) > maxInteger {
		return 0, false, d.fail(field, "is out of range")
	}
	return int64(f), true, nil
}

func (d *decoder) strings(field string) []string {
	raw, ok := d.rec[field].([]interface{})
	if !ok {
		if d.rec[field] != nil {
			d.coerced = append(d.coerced, field)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			d.coerced = append(d.coerced, field)
		}
	}
	return out
}

func warnCoerced(logger core.Logger, path string, fields []string) {
	if len(fields) == 0 || logger == nil {
		return
	}
	logger.Warn("coerced stored values", map[string]interface{}{"path": path, "fields": fields})
}

// sortedKeys returns the keys of recs in ascending order.
func sortedKeys(recs map[string]core.Record) []string {
	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// skip logs a record left out of a listing.
func skip(logger core.Logger, err error) {
	if logger != nil {
		logger.Error("skipping invalid record", err)
	}
}
