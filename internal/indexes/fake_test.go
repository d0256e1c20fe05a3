package indexes

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeStore is an in-memory Store. Creating an index records it the way the
// server would list it; hooks inject failures.
type fakeStore struct {
	mu       sync.Mutex
	indexes  map[string][]IndexInfo
	creates  int
	pingErr  error
	listErr  map[string]error
	createFn func(ctx context.Context, s Spec) error
	dups     []Duplicate
	explain  bson.Raw
}

func newFakeStore() *fakeStore {
	return &fakeStore{indexes: make(map[string][]IndexInfo), listErr: make(map[string]error)}
}

func (f *fakeStore) seed(info IndexInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[info.Collection] = append(f.indexes[info.Collection], info)
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListIndexes(_ context.Context, collection string) ([]IndexInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[collection]; err != nil {
		return nil, err
	}
	return append([]IndexInfo(nil), f.indexes[collection]...), nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, s Spec) (string, error) {
	if f.createFn != nil {
		if err := f.createFn(ctx, s); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.indexes[s.Collection] = append(f.indexes[s.Collection], IndexInfo{
		Collection: s.Collection, Name: s.Name, Keys: s.Keys, Unique: s.Unique,
	})
	return s.Name, nil
}

func (f *fakeStore) FindDuplicates(_ context.Context, _ Spec, limit int) ([]Duplicate, error) {
	if limit < len(f.dups) {
		return f.dups[:limit], nil
	}
	return f.dups, nil
}

func (f *fakeStore) Explain(context.Context, QueryShape) (bson.Raw, error) {
	return f.explain, nil
}

func (f *fakeStore) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.indexes[collection])
}
