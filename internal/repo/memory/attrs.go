package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/recipehub/recipehub/internal/domain/recipe"
)

// AttrsRepo is an in-memory owned-attribute store. It backs the
// reconciliation engine in tests and mirrors the interface of the
// postgres repository.
type AttrsRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]recipe.OwnedAttr
}

func NewAttrsRepo() *AttrsRepo {
	return &AttrsRepo{
		nextID: 1,
		items:  make(map[int64]recipe.OwnedAttr),
	}
}

func (r *AttrsRepo) FindIDByName(ctx context.Context, ownerID int64, name string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// deterministic scan order so repeated lookups resolve to the same row
	ids := make([]int64, 0, len(r.items))

	for id := range r.items {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		a := r.items[id]

		if a.UserID == ownerID && a.Name == name {
			return a.ID, true, nil
		}
	}

	return 0, false, nil
}

func (r *AttrsRepo) Create(ctx context.Context, ownerID int64, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	r.items[id] = recipe.OwnedAttr{
		ID:     id,
		Name:   name,
		UserID: ownerID,
	}

	return id, nil
}

func (r *AttrsRepo) Get(id int64) (recipe.OwnedAttr, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]

	return a, ok
}

func (r *AttrsRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// Links is an in-memory association table between recipes and one
// attribute kind. Attach is idempotent like the SQL ON CONFLICT path.
type Links struct {
	mu    sync.Mutex
	byRec map[int64]map[int64]struct{}
}

func NewLinks() *Links {
	return &Links{byRec: make(map[int64]map[int64]struct{})}
}

func (l *Links) Attach(ctx context.Context, recipeID, attrID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.byRec[recipeID]

	if !ok {
		set = make(map[int64]struct{})
		l.byRec[recipeID] = set
	}

	set[attrID] = struct{}{}

	return nil
}

func (l *Links) Clear(ctx context.Context, recipeID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.byRec, recipeID)

	return nil
}

func (l *Links) Attached(recipeID int64) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]int64, 0, len(l.byRec[recipeID]))

	for id := range l.byRec[recipeID] {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
