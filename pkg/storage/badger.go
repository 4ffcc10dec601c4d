// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sealbox/sealbox/pkg/verr"
)

// badgerBackend is the durable Backend, used by cmd/sealboxd outside tests.
type badgerBackend struct {
	db *badger.DB
}

// NewBadger opens (or creates) a Badger database at path. Pass "" for an
// ephemeral in-memory Badger instance, handy for integration tests that
// still want to exercise the real backend's key layout.
func NewBadger(path string) (Backend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerBackend{db: db}, nil
}

func (b *badgerBackend) Put(_ context.Context, namespace, id string, rec *Record) error {
	data, err := MarshalRecord(rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key(namespace, id)), data)
	})
}

func (b *badgerBackend) Get(_ context.Context, namespace, id string) (*Record, error) {
	var rec *Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key(namespace, id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return verr.New(verr.NotFound, "record not found: "+id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := UnmarshalRecord(val)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *badgerBackend) Delete(_ context.Context, namespace, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key(namespace, id)))
	})
}

func (b *badgerBackend) List(_ context.Context, namespace string) ([]*Record, error) {
	prefix := []byte(namespace + "/")
	var out []*Record
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				r, err := UnmarshalRecord(val)
				if err != nil {
					return err
				}
				out = append(out, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *badgerBackend) Close() error { return b.db.Close() }
