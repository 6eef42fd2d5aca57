// Package position remembers where the reader left each book.
package position

import (
	"fmt"

	"github.com/justyntemme/jianyue/internal/storage"
)

const keyPrefix = "position:"

// Store keeps one opaque position id per book slug
type Store struct {
	kv storage.Storage
}

// NewStore wraps a key-value store
func NewStore(kv storage.Storage) *Store {
	return &Store{kv: kv}
}

// Key returns the storage key for a slug
func Key(slug string) string {
	return keyPrefix + slug
}

// Save records id as the position for slug, replacing any earlier one.
// An empty id is ignored.
func (s *Store) Save(slug, id string) error {
	if slug == "" {
		return fmt.Errorf("save position: %w", storage.ErrInvalidKey)
	}
	if id == "" {
		return nil
	}
	if err := s.kv.Set(Key(slug), id); err != nil {
		return fmt.Errorf("save position for %s: %w", slug, err)
	}
	return nil
}

// Load returns the saved position for slug
func (s *Store) Load(slug string) (string, bool, error) {
	if slug == "" {
		return "", false, fmt.Errorf("load position: %w", storage.ErrInvalidKey)
	}
	id, ok, err := s.kv.Get(Key(slug))
	if err != nil {
		return "", false, fmt.Errorf("load position for %s: %w", slug, err)
	}
	if id == "" {
		return "", false, nil
	}
	return id, ok, nil
}

// Clear forgets the position for slug
func (s *Store) Clear(slug string) error {
	if slug == "" {
		return fmt.Errorf("clear position: %w", storage.ErrInvalidKey)
	}
	if err := s.kv.Remove(Key(slug)); err != nil {
		return fmt.Errorf("clear position for %s: %w", slug, err)
	}
	return nil
}
