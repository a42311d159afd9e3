package internal

import (
	"encoding/json"
	"sort"
)

// StringSet is an immutable insertion-ordered set. The zero value is empty.
// It travels as a JSON array.
type StringSet struct {
	items []string
	index map[string]struct{}
}

func NewStringSet(items ...string) StringSet {
	var s StringSet
	for _, it := range items {
		if s.Has(it) {
			continue
		}
		s = s.with(it)
	}
	return s
}

func (s StringSet) Has(item string) bool {
	_, ok := s.index[item]
	return ok
}

func (s StringSet) Len() int {
	return len(s.items)
}

// Slice returns a copy of the members in insertion order.
func (s StringSet) Slice() []string {
	return append([]string{}, s.items...)
}

// With returns a set that also contains item.
func (s StringSet) With(item string) StringSet {
	if s.Has(item) {
		return s
	}
	return s.with(item)
}

func (s StringSet) with(item string) StringSet {
	out := StringSet{
		items: make([]string, 0, len(s.items)+1),
		index: make(map[string]struct{}, len(s.items)+1),
	}
	for _, it := range s.items {
		out.items = append(out.items, it)
		out.index[it] = struct{}{}
	}
	out.items = append(out.items, item)
	out.index[item] = struct{}{}
	return out
}

// Without returns a set with every member for which drop reports true removed.
func (s StringSet) Without(drop func(string) bool) StringSet {
	kept := make([]string, 0, len(s.items))
	for _, it := range s.items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	return NewStringSet(kept...)
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *StringSet) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// MarkSet is a StringSet that travels as an {"id": true} object, so members
// can be added with a field-scoped write.
type MarkSet struct {
	StringSet
}

func NewMarkSet(items ...string) MarkSet {
	return MarkSet{NewStringSet(items...)}
}

func (m MarkSet) Mark(item string) MarkSet {
	return MarkSet{m.StringSet.With(item)}
}

func (m MarkSet) MarshalJSON() ([]byte, error) {
	obj := make(map[string]bool, m.Len())
	for _, it := range m.items {
		obj[it] = true
	}
	return json.Marshal(obj)
}

func (m *MarkSet) UnmarshalJSON(b []byte) error {
	var obj map[string]bool
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	*m = NewMarkSet(keys...)
	return nil
}
