// Package statemachine implements the replicated value S: an in-memory
// mapping from integer keys to integer values (spec §3, §4.7). It is
// listed as an external collaborator in spec.md, but — like the
// teacher's internal/storage.MemoryStorage — a reference implementation
// ships here so the core is runnable without a real backing store.
package statemachine

import "maps"

// KV is the state machine value S: an integer-to-integer map. The zero
// value is an empty, ready-to-use store.
type KV struct {
	data map[int64]int64
}

// New returns an empty KV.
func New() *KV {
	return &KV{data: make(map[int64]int64)}
}

// Clone returns a deep copy, required because a Promise snapshot and an
// Accept payload must not alias the replica's live map.
func (kv *KV) Clone() *KV {
	out := &KV{data: make(map[int64]int64, len(kv.data))}
	maps.Copy(out.data, kv.data)
	return out
}

// Read returns the value at key and whether it was present.
func (kv *KV) Read(key int64) (int64, bool) {
	v, ok := kv.data[key]
	return v, ok
}

// Write sets key to value unconditionally.
func (kv *KV) Write(key, value int64) {
	if kv.data == nil {
		kv.data = make(map[int64]int64)
	}
	kv.data[key] = value
}

// CompareAndSwap sets key to to only if its current value equals from.
// It returns ErrKeyDoesNotExist if key is absent and ErrPreconditionFailed
// if the current value differs from from.
func (kv *KV) CompareAndSwap(key, from, to int64) error {
	current, ok := kv.data[key]
	if !ok {
		return ErrKeyDoesNotExist
	}
	if current != from {
		return ErrPreconditionFailed
	}
	kv.data[key] = to
	return nil
}

// Equal reports whether two state machine values hold the same mapping.
func (kv *KV) Equal(other *KV) bool {
	if len(kv.data) != len(other.data) {
		return false
	}
	for k, v := range kv.data {
		if ov, ok := other.data[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Snapshot returns the string-keyed decimal rendering required by §6 for
// transport: JSON object keys must be strings.
func (kv *KV) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(kv.data))
	for k, v := range kv.data {
		out[formatKey(k)] = v
	}
	return out
}

// FromSnapshot rebuilds a KV from the string-keyed wire representation.
func FromSnapshot(snapshot map[string]int64) (*KV, error) {
	kv := New()
	for k, v := range snapshot {
		key, err := parseKey(k)
		if err != nil {
			return nil, err
		}
		kv.data[key] = v
	}
	return kv, nil
}
