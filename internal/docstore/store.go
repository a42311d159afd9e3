// Package docstore is the shared mutable room document replicas sync
// through: point reads, shallow-merge patches at a slash path, and a
// subscription fired on every change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Document = map[string]any

var (
	ErrNotFound = errors.New("docstore: room not found")
	ErrExists   = errors.New("docstore: room already exists")
)

// Store is implemented by MemoryStore, SQLiteStore, PostgresStore and
// RemoteStore.
type Store interface {
	Create(ctx context.Context, roomId string, doc Document) error
	Get(ctx context.Context, roomId string) (Document, error)
	// Patch shallow-merges fields into the object at path. A nil field
	// deletes the key. Writes are last-write-wins per field.
	Patch(ctx context.Context, roomId, path string, fields map[string]any) error
	// Subscribe calls onChange with the current document and again after
	// every change, never from inside Patch. A nil document means the room
	// was deleted. The returned func stops delivery.
	Subscribe(ctx context.Context, roomId string, onChange func(Document)) (func(), error)
	Delete(ctx context.Context, roomId string) error
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ApplyPatch returns a copy of doc with fields merged at path. Missing or
// non-object nodes along the path are replaced with objects.
func ApplyPatch(doc Document, path string, fields map[string]any) Document {
	out := Clone(doc)
	if out == nil {
		out = Document{}
	}
	node := out
	for _, key := range splitPath(path) {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}
	for k, v := range fields {
		if v == nil {
			delete(node, k)
			continue
		}
		node[k] = cloneValue(v)
	}
	return out
}

func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Normalize converts fields to plain JSON types, so every backend stores the
// same shapes a JSON round trip would produce.
func Normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	// null values survive the round trip as explicit deletes
	return out, nil
}

func encodeDoc(doc Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func decodeDoc(b []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
