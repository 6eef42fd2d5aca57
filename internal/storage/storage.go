// Package storage provides the durable key-value store used for reading
// positions.
package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidKey is returned for empty keys
var ErrInvalidKey = errors.New("invalid storage key")

// Storage is a string key-value store. Implementations are safe for
// concurrent use.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Driver names
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates a store for the given driver. path is ignored by the memory driver.
func Open(driver, path string) (Storage, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// Memory keeps entries in a map for the life of the process
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get implements Storage
func (s *Memory) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements Storage
func (s *Memory) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Remove implements Storage
func (s *Memory) Remove(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Close implements Storage
func (s *Memory) Close() error {
	return nil
}
