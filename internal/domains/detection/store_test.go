package detection

import (
	"encoding/json"
	"errors"
)

// memStore is an in-memory Store double for tests.
type memStore struct {
	data    map[string][]byte
	failing bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Load(key string, v any) error {
	if m.failing {
		return errors.New("store offline")
	}
	raw, ok := m.data[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (m *memStore) Save(key string, v any) error {
	if m.failing {
		return errors.New("store offline")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}
