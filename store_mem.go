package kvdoc

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// MemStore is a transient in-memory Store, mostly useful for tests and as
// the basis of FileStore. Items are kept sorted by key.
type MemStore struct {
	mu     sync.RWMutex
	items  []memKV // sorted by key
	closed bool

	onChange func(items []memKV) error
}

type memKV struct {
	key   string
	value []byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errStoreClosed
	}
	i, ok := s.find(key)
	if !ok {
		return nil, nil
	}
	value := slices.Clone(s.items[i].value)
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *MemStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	if value == nil {
		value = []byte{}
	}
	value = slices.Clone(value)

	i, ok := s.find(key)
	if ok {
		s.items[i].value = value
	} else {
		s.items = slices.Insert(s.items, i, memKV{key: key, value: value})
	}
	return s.changed()
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	i, ok := s.find(key)
	if !ok {
		return nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	return s.changed()
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, errStoreClosed
	}
	_, ok := s.find(key)
	return ok, nil
}

func (s *MemStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errStoreClosed
	}
	prefix := globPrefix(pattern)
	i, _ := s.find(prefix)
	var keys []string
	for ; i < len(s.items); i++ {
		k := s.items[i].key
		if !strings.HasPrefix(k, prefix) {
			break
		}
		if matchGlob(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}

func (s *MemStore) find(key string) (idx int, ok bool) {
	items := s.items
	i := sort.Search(len(items), func(i int) bool {
		return items[i].key >= key
	})
	if i < len(items) && items[i].key == key {
		return i, true
	}
	return i, false
}

func (s *MemStore) changed() error {
	if s.onChange == nil {
		return nil
	}
	return s.onChange(s.items)
}

var errStoreClosed = fmt.Errorf("store closed")
