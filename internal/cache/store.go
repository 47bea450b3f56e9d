package cache

import (
	"context"
	"sync"

	"github.com/fakhrymubarak/weather-viewer/internal/model"
)

// IconStore is a concurrency-safe keyed store of decoded icons.
// Entries are never evicted; Put for an existing ID replaces it.
type IconStore interface {
	Get(ctx context.Context, id string) (*model.Icon, bool, error)
	Put(ctx context.Context, icon *model.Icon) error
	Len(ctx context.Context) (int, error)
}

// MemoryStore keeps icons for the lifetime of the process.
type MemoryStore struct {
	mutex sync.RWMutex
	icons map[string]*model.Icon
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		icons: make(map[string]*model.Icon),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Icon, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	icon, ok := s.icons[id]
	return icon, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, icon *model.Icon) error {
	s.mutex.Lock()
	s.icons[icon.ID] = icon
	s.mutex.Unlock()
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.icons), nil
}

// Ensure MemoryStore implements the IconStore interface
var _ IconStore = (*MemoryStore)(nil)
