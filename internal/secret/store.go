// Package secret looks up credentials that should not live in config files.
package secret

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Delete for a ref that holds nothing.
var ErrNotFound = errors.New("secret not found")

// Store holds secrets by reference name. Get returns nil, nil for unknown refs.
type Store interface {
	Set(ref string, value []byte) error
	Get(ref string) ([]byte, error)
	Delete(ref string) error
}

// Resolve returns the secret behind ref, or fallback when ref is empty.
// A ref that names nothing is an error so a typo does not silently connect without a password.
func Resolve(s Store, ref, fallback string) (string, error) {
	if ref == "" {
		return fallback, nil
	}
	v, err := s.Get(ref)
	if err != nil {
		return "", fmt.Errorf("resolve secret %s: %w", ref, err)
	}
	if v == nil {
		return "", fmt.Errorf("secret %s: %w", ref, ErrNotFound)
	}
	return string(v), nil
}

// MapStore keeps secrets in memory.
type MapStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMapStore() *MapStore { return &MapStore{m: map[string][]byte{}} }

func (s *MapStore) Set(ref string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[ref] = append([]byte(nil), value...)
	return nil
}

func (s *MapStore) Get(ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[ref], nil
}

func (s *MapStore) Delete(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[ref]; !ok {
		return fmt.Errorf("delete %s: %w", ref, ErrNotFound)
	}
	delete(s.m, ref)
	return nil
}
