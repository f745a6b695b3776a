package service

import (
	"sync"
	"time"

	"github.com/noah-isme/swimcoach/internal/models"
)

const defaultViewTTL = 30 * time.Minute

// LocalView keeps, per caller scope, the last confirmed state of entities and the lists they
// were loaded in. Loads carry a generation; a load that was superseded by a newer load or by a
// confirmed mutation in the same scope is not stored. Scopes left idle for longer than the ttl
// are evicted.
type LocalView[T any] struct {
	idOf func(T) string
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	scopes    map[string]*viewScope[T]
	lastSweep time.Time
}

type viewScope[T any] struct {
	items       map[string]T
	lists       map[string][]string
	generations map[string]uint64
	epoch       uint64
	touched     time.Time
}

// NewLocalView constructs an empty view keyed by idOf. A non-positive ttl uses the default.
func NewLocalView[T any](idOf func(T) string, ttl time.Duration) *LocalView[T] {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &LocalView[T]{
		idOf:   idOf,
		ttl:    ttl,
		now:    time.Now,
		scopes: make(map[string]*viewScope[T]),
	}
}

// NewRequestBoard builds the course request view.
func NewRequestBoard(ttl time.Duration) *LocalView[models.CourseRequest] {
	return NewLocalView(func(r models.CourseRequest) string { return r.ID }, ttl)
}

// NewEnrollmentBook builds the enrollment view.
func NewEnrollmentBook(ttl time.Duration) *LocalView[models.Enrollment] {
	return NewLocalView(func(e models.Enrollment) string { return e.ID }, ttl)
}

// Ticket identifies one load of a list, or one read of an entity, within a scope.
type Ticket struct {
	scope      string
	list       string
	generation uint64
	epoch      uint64
}

// scope returns the state of one caller, creating it when needed. Callers hold mu.
func (v *LocalView[T]) scope(name string) *viewScope[T] {
	now := v.now()
	if now.Sub(v.lastSweep) >= v.ttl {
		v.sweepLocked(now)
	}
	s, ok := v.scopes[name]
	if !ok {
		s = &viewScope[T]{
			items:       make(map[string]T),
			lists:       make(map[string][]string),
			generations: make(map[string]uint64),
		}
		v.scopes[name] = s
	}
	s.touched = now
	return s
}

func (v *LocalView[T]) sweepLocked(now time.Time) int {
	v.lastSweep = now
	evicted := 0
	for name, s := range v.scopes {
		if now.Sub(s.touched) > v.ttl {
			delete(v.scopes, name)
			evicted++
		}
	}
	return evicted
}

// Sweep evicts idle scopes and returns how many were dropped.
func (v *LocalView[T]) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sweepLocked(v.now())
}

// Scopes returns the number of live caller scopes.
func (v *LocalView[T]) Scopes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.scopes)
}

// BeginLoad starts a load of list, superseding any load already in flight for it.
func (v *LocalView[T]) BeginLoad(scope, list string) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(scope)
	s.generations[list]++
	return Ticket{scope: scope, list: list, generation: s.generations[list], epoch: s.epoch}
}

// BeginRead starts a read of a single entity.
func (v *LocalView[T]) BeginRead(scope string) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Ticket{scope: scope, epoch: v.scope(scope).epoch}
}

// Commit stores a loaded list. It returns false and changes nothing when the ticket is stale.
func (v *LocalView[T]) Commit(t Ticket, loaded []T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(t.scope)
	if s.generations[t.list] != t.generation || s.epoch != t.epoch {
		return false
	}
	ids := make([]string, 0, len(loaded))
	for _, item := range loaded {
		id := v.idOf(item)
		s.items[id] = item
		ids = append(ids, id)
	}
	s.lists[t.list] = ids
	return true
}

// Refresh stores an entity read from the server unless a mutation was confirmed since the read began.
func (v *LocalView[T]) Refresh(t Ticket, item T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(t.scope)
	if s.epoch != t.epoch {
		return false
	}
	s.items[v.idOf(item)] = item
	return true
}

// Forget drops an entity the server no longer returns.
func (v *LocalView[T]) Forget(scope, id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.scope(scope).items, id)
}

// Invalidate drops a list and discards loads of it still in flight.
func (v *LocalView[T]) Invalidate(scope, list string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(scope)
	s.generations[list]++
	delete(s.lists, list)
}

// Get returns the last known state of an entity within scope.
func (v *LocalView[T]) Get(scope, id string) (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	item, ok := v.scope(scope).items[id]
	return item, ok
}

// List returns the entities of a loaded list in load order.
func (v *LocalView[T]) List(scope, list string) ([]T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(scope)
	ids, ok := s.lists[list]
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, true
}

// Apply reflects a confirmed mutation in place. Loads and reads the scope started before it are not stored.
func (v *LocalView[T]) Apply(scope string, item T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(scope)
	s.items[v.idOf(item)] = item
	s.epoch++
}

// Append reflects a confirmed create and adds it to list when that list is loaded.
func (v *LocalView[T]) Append(scope, list string, item T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.scope(scope)
	id := v.idOf(item)
	s.items[id] = item
	if ids, ok := s.lists[list]; ok {
		s.lists[list] = append(ids, id)
	}
	s.epoch++
}

// inflightGuard rejects a second mutation of an entity while the first is unresolved.
type inflightGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{keys: make(map[string]struct{})}
}

// acquire marks key busy and returns its release func, or false when key is already busy.
func (g *inflightGuard) acquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return nil, false
	}
	g.keys[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.keys, key)
		g.mu.Unlock()
	}, true
}
