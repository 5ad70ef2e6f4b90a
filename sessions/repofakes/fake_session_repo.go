package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-inventory-admin/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps values in memory. It backs the "memory" store and
// lets tests inject failures and count writes.
type FakeSessionRepo struct {
	values map[string]string
	lock   sync.RWMutex

	LoadErr   error // Returned by Load when set
	StoreErr  error // Returned by Store when set
	DeleteErr error // Returned by Delete when set

	Stores  int
	Deletes int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Load(_ context.Context, keys ...string) (map[string]string, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	if sr.LoadErr != nil {
		return nil, sr.LoadErr
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := sr.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (sr *FakeSessionRepo) Store(_ context.Context, values map[string]string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.StoreErr != nil {
		return sr.StoreErr
	}
	for k, v := range values {
		sr.values[k] = v
	}
	sr.Stores++
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, keys ...string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.DeleteErr != nil {
		return sr.DeleteErr
	}
	for _, k := range keys {
		delete(sr.values, k)
	}
	sr.Deletes++
	return nil
}

// Get returns a stored value directly, for assertions.
func (sr *FakeSessionRepo) Get(key string) (string, bool) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	v, ok := sr.values[key]
	return v, ok
}

// Set writes a value directly, bypassing failure injection.
func (sr *FakeSessionRepo) Set(key, value string) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.values[key] = value
}

func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.values)
}
