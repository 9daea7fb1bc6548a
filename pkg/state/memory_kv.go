package state

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryKV is a minimal in-memory KV implementation intended for tests and
// examples. It uses the slot name as its deterministic key and makes no
// persistence assumptions beyond that.
type MemoryKV struct {
	mu      sync.RWMutex
	records map[Slot]memoryRecord
}

type memoryRecord struct {
	payload json.RawMessage
	meta    Meta
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{records: map[Slot]memoryRecord{}}
}

func (s *MemoryKV) Get(_ context.Context, slot Slot) (json.RawMessage, Meta, bool, error) {
	s.mu.RLock()
	record, ok := s.records[slot]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	payload := make(json.RawMessage, len(record.payload))
	copy(payload, record.payload)
	return payload, cloneMeta(record.meta), true, nil
}

func (s *MemoryKV) Set(_ context.Context, slot Slot, payload json.RawMessage, meta Meta) (Meta, error) {
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	s.records[slot] = memoryRecord{payload: stored, meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}
