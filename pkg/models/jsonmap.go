package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// JSONMap is a flexible, schema-light bag used for the extension fields
// spec.md leaves as free-form mappings (Config.data, Ticket.metadata,
// AnalysisHistory.justification). It round-trips through gorm as a JSON
// column on both Postgres and SQLite.
type JSONMap map[string]interface{}

// Value implements driver.Valuer for gorm/database-sql.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("marshal JSONMap: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}

	result := JSONMap{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return fmt.Errorf("unmarshal JSONMap: %w", err)
	}
	*m = result
	return nil
}

// SortedJSON serializes m with keys sorted, used for the cache-validity
// deep-equality comparison in spec.md §4.1 ("serialized Config payload").
func (m JSONMap) SortedJSON() (string, error) {
	if m == nil {
		return "{}", nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		vb, err := json.Marshal(normalizeForSort(m[k]))
		if err != nil {
			return "", err
		}
		ordered = append(ordered, kb...)
		ordered = append(ordered, ':')
		ordered = append(ordered, vb...)
	}
	ordered = append(ordered, '}')
	return string(ordered), nil
}

// normalizeForSort recursively sorts nested maps so equal Config payloads
// produce byte-identical JSON regardless of map iteration order.
func normalizeForSort(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(jsonOrderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, jsonKV{Key: k, Value: normalizeForSort(t[k])})
		}
		return out
	case JSONMap:
		return normalizeForSort(map[string]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeForSort(e)
		}
		return out
	default:
		return v
	}
}

// jsonOrderedMap marshals as a JSON object preserving insertion order, which
// lets normalizeForSort emit map keys in sorted order without relying on
// encoding/json's (unordered) map marshaling.
type jsonKV struct {
	Key   string
	Value interface{}
}

type jsonOrderedMap []jsonKV

func (m jsonOrderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, kv := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Equal reports whether two JSONMap values are deeply equal once both are
// rendered through SortedJSON. Used for the cache-validity invariant
// (spec.md §4.1, §8 invariant 4).
func (m JSONMap) Equal(other JSONMap) bool {
	a, errA := m.SortedJSON()
	b, errB := other.SortedJSON()
	if errA != nil || errB != nil {
		return false
	}
	return a == b
}
