// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package storage defines the persisted-record envelope (spec §6
// "Persisted state") and the backends that store it. The marshal codec
// here is stable and deterministic — field-map keys are sorted before
// encoding — so re-marshaling a record is byte-identical.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CurrentSchemaVersion is the schema version byte stamped on every record
// this module writes. Readers reject records from a newer schema.
const CurrentSchemaVersion byte = 1

// Record is the self-describing envelope every storable entity (Account,
// Org, Vault, Group, Session, Auth, Invite) serializes to.
type Record struct {
	ID            string
	SchemaVersion byte
	Fields        map[string][]byte
}

// MarshalRecord renders a Record deterministically as JSON: fields sorted by
// name, each []byte value encoded as standard base64 by encoding/json.
func MarshalRecord(r *Record) ([]byte, error) {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := struct {
		ID            string
		SchemaVersion byte
		Fields        []fieldEntry
	}{ID: r.ID, SchemaVersion: r.SchemaVersion}

	for _, k := range keys {
		ordered.Fields = append(ordered.Fields, fieldEntry{Name: k, Value: r.Fields[k]})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(ordered); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type fieldEntry struct {
	Name  string
	Value []byte
}

// UnmarshalRecord parses bytes produced by MarshalRecord.
func UnmarshalRecord(data []byte) (*Record, error) {
	var ordered struct {
		ID            string
		SchemaVersion byte
		Fields        []fieldEntry
	}
	if err := json.Unmarshal(data, &ordered); err != nil {
		return nil, err
	}
	if ordered.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("storage: record schema version %d is newer than supported %d", ordered.SchemaVersion, CurrentSchemaVersion)
	}
	r := &Record{ID: ordered.ID, SchemaVersion: ordered.SchemaVersion, Fields: map[string][]byte{}}
	for _, f := range ordered.Fields {
		r.Fields[f.Name] = f.Value
	}
	return r, nil
}
