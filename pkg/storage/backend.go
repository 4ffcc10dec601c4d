// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"sync"

	"github.com/sealbox/sealbox/pkg/verr"
)

// Backend is the persistence surface the core entities are stored through.
// Each entity kind gets its own key namespace (caller-chosen prefix), so a
// single Backend instance can hold accounts, orgs, vaults, groups,
// sessions, auth records and invites side by side.
type Backend interface {
	Put(ctx context.Context, namespace, id string, rec *Record) error
	Get(ctx context.Context, namespace, id string) (*Record, error)
	Delete(ctx context.Context, namespace, id string) error
	List(ctx context.Context, namespace string) ([]*Record, error)
	Close() error
}

func key(namespace, id string) string { return namespace + "/" + id }

// memoryBackend is an in-process Backend, used by the tests; nothing in it
// survives a restart.
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string]*Record
}

// NewMemory returns a Backend that keeps everything in a guarded map.
func NewMemory() Backend {
	return &memoryBackend{data: map[string]*Record{}}
}

func (m *memoryBackend) Put(_ context.Context, namespace, id string, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Fields = cloneFields(rec.Fields)
	m.data[key(namespace, id)] = &cp
	return nil
}

func (m *memoryBackend) Get(_ context.Context, namespace, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[key(namespace, id)]
	if !ok {
		return nil, verr.New(verr.NotFound, "record not found: "+id)
	}
	cp := *rec
	cp.Fields = cloneFields(rec.Fields)
	return &cp, nil
}

func (m *memoryBackend) Delete(_ context.Context, namespace, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key(namespace, id))
	return nil
}

func (m *memoryBackend) List(_ context.Context, namespace string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := namespace + "/"
	var out []*Record
	for k, rec := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			cp := *rec
			cp.Fields = cloneFields(rec.Fields)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryBackend) Close() error { return nil }

func cloneFields(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
