// Package config holds the dotted key model shared by the config stores.
// A TOML document such as
//
//	[retrieval]
//	top_k = 6
//
// is addressed as "retrieval.top_k".
package config

import (
	"sort"
	"strings"
)

// Values maps dotted keys to decoded TOML values. Integers may arrive as
// int64 from the decoder or as int from callers; getters accept both.
type Values map[string]any

// Flatten turns nested tables into dotted keys.
func Flatten(tables map[string]any) Values {
	out := Values{}
	flattenInto(out, "", tables)
	return out
}

func flattenInto(out Values, prefix string, tables map[string]any) {
	for k, v := range tables {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, k, sub)
			continue
		}
		out[k] = v
	}
}

// Nest rebuilds tables from dotted keys. When a key is both a value and
// the prefix of other keys, the table wins.
func (v Values) Nest() map[string]any {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, k := range keys {
		parts := strings.Split(k, ".")
		table := root
		for _, p := range parts[:len(parts)-1] {
			sub, ok := table[p].(map[string]any)
			if !ok {
				sub = map[string]any{}
				table[p] = sub
			}
			table = sub
		}
		leaf := parts[len(parts)-1]
		if _, isTable := table[leaf].(map[string]any); !isTable {
			table[leaf] = v[k]
		}
	}
	return root
}

// String returns the value at key, or "" if absent or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the integer at key, or 0.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Float returns the number at key, or 0.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Bool returns the boolean at key, or false.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Strings returns the string array at key. Non-string elements of a
// decoded array are skipped.
func (v Values) Strings(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
