package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedVersion = errors.New("stored value has a newer schema version")
	ErrSchemaMismatch     = errors.New("stored value belongs to a different schema")
)

// envelope wraps persisted JSON with a schema tag so later shape changes can
// be detected instead of silently misread.
type envelope struct {
	Schema  string          `json:"schema"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Codec encodes one value shape under a storage key.
type Codec[T any] struct {
	Key     string
	Schema  string
	Version int

	// Migrate upgrades data written under an older version, including bare
	// legacy JSON (version 0). When nil, older data is decoded as-is.
	Migrate func(version int, data json.RawMessage) (T, error)
}

// Load reads the value. A missing key yields the zero value and false.
func (c Codec[T]) Load(s Storage) (T, bool, error) {
	var zero T
	raw, ok, err := s.GetItem(c.Key)
	if err != nil || !ok || raw == "" {
		return zero, false, err
	}

	data := []byte(raw)
	version := 0
	if env, isEnv := decodeEnvelope(data); isEnv {
		if env.Schema != c.Schema {
			return zero, false, fmt.Errorf("%s: %w (%q)", c.Key, ErrSchemaMismatch, env.Schema)
		}
		if env.Version > c.Version {
			return zero, false, fmt.Errorf("%s: %w (v%d)", c.Key, ErrUnsupportedVersion, env.Version)
		}
		version = env.Version
		data = env.Data
	}

	if version < c.Version && c.Migrate != nil {
		v, err := c.Migrate(version, data)
		if err != nil {
			return zero, false, fmt.Errorf("%s: failed to migrate v%d: %w", c.Key, version, err)
		}
		return v, true, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("%s: failed to decode: %w", c.Key, err)
	}
	return v, true, nil
}

// Save writes the value wrapped in the current schema envelope.
func (c Codec[T]) Save(s Storage, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out, err := json.Marshal(envelope{Schema: c.Schema, Version: c.Version, Data: data})
	if err != nil {
		return err
	}
	return s.SetItem(c.Key, string(out))
}

// Clear removes the key.
func (c Codec[T]) Clear(s Storage) error {
	return s.RemoveItem(c.Key)
}

func decodeEnvelope(data []byte) (envelope, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return envelope{}, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return envelope{}, false
	}
	if _, ok := probe["schema"]; !ok {
		return envelope{}, false
	}
	if _, ok := probe["v"]; !ok {
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return envelope{}, false
	}
	return env, true
}
