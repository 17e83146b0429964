package mocks

import (
	"sync"
)

// MockStorage is a mock implementation of storage.Storage for testing
type MockStorage struct {
	mu   sync.RWMutex
	data map[string]string

	// For tracking calls in tests
	GetCalls    []string
	SetCalls    []SetCall
	RemoveCalls []string

	// Errors returned by the matching method when set
	GetErr    error
	SetErr    error
	RemoveErr error
}

// SetCall records parameters passed to SetItem
type SetCall struct {
	Key   string
	Value string
}

// NewMockStorage creates a new MockStorage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		data:        make(map[string]string),
		GetCalls:    make([]string, 0),
		SetCalls:    make([]SetCall, 0),
		RemoveCalls: make([]string, 0),
	}
}

// GetItem retrieves a value
func (m *MockStorage) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	value, ok := m.data[key]
	return value, ok, nil
}

// SetItem stores a value
func (m *MockStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// RemoveItem deletes a value
func (m *MockStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RemoveCalls = append(m.RemoveCalls, key)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.data, key)
	return nil
}

// WriteCount returns how many SetItem and RemoveItem calls were made
func (m *MockStorage) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SetCalls) + len(m.RemoveCalls)
}

// Reset clears all data and recorded calls
func (m *MockStorage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.GetCalls = make([]string, 0)
	m.SetCalls = make([]SetCall, 0)
	m.RemoveCalls = make([]string, 0)
}

// SetData sets data directly for testing (without recording the call)
func (m *MockStorage) SetData(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// GetData gets data directly for testing (without recording the call)
func (m *MockStorage) GetData(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}
