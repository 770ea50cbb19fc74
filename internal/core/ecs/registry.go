package ecs

import (
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/zap"
)

// DefaultCapacity is the maximum number of simultaneously live entities a
// registry hands out unless configured otherwise.
const DefaultCapacity = 5000

// Registry owns the entity pool, one type-erased store per component key and
// the tag sets. It is the sole authority on entity validity. Accessed only
// from the frame goroutine, so there are no locks.
type Registry struct {
	pool         *EntityPool
	stores       map[reflect.Type]Storage
	tags         map[EntityID]map[string]struct{}
	destroyQueue []EntityID
	clearing     bool // stores are being torn down; hierarchy disposers skip
	log          *zap.Logger
}

func NewRegistry(capacity int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		pool:         NewEntityPool(capacity),
		stores:       make(map[reflect.Type]Storage, 16),
		tags:         make(map[EntityID]map[string]struct{}),
		destroyQueue: make([]EntityID, 0, 64),
		log:          log,
	}
}

func (r *Registry) Pool() *EntityPool { return r.pool }

// CreateEntity returns a fresh or recycled handle with no components.
func (r *Registry) CreateEntity() (EntityID, error) {
	id, err := r.pool.Create()
	if err != nil {
		r.log.Warn("entity pool exhausted", zap.Int("capacity", r.pool.Capacity()))
		return Null, err
	}
	return id, nil
}

func (r *Registry) IsValidEntity(id EntityID) bool {
	return r.pool.Alive(id)
}

// DestroyEntity removes id from every store, clears its tags, detaches it
// from the hierarchy and recycles the handle. Stale handles are ignored.
func (r *Registry) DestroyEntity(id EntityID) {
	if !r.pool.Alive(id) {
		return
	}
	r.unlinkHierarchy(id)
	for _, s := range r.stores {
		s.Remove(id)
	}
	delete(r.tags, id)
	r.pool.Destroy(id)
}

// MarkForDestruction queues an entity for end-of-frame cleanup.
func (r *Registry) MarkForDestruction(id EntityID) {
	r.destroyQueue = append(r.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (r *Registry) FlushDestroyQueue() int {
	n := 0
	for i := 0; i < len(r.destroyQueue); i++ {
		id := r.destroyQueue[i]
		if r.pool.Alive(id) {
			r.DestroyEntity(id)
			n++
		}
	}
	r.destroyQueue = r.destroyQueue[:0]
	return n
}

// Clear disposes every store, then resets tags and handles. Handles issued
// before Clear are invalid afterwards.
func (r *Registry) Clear() {
	r.clearing = true
	for _, s := range r.stores {
		s.Clear()
	}
	r.clearing = false
	r.log.Debug("registry cleared",
		zap.Int("entities", r.pool.Len()),
		zap.Int("stores", len(r.stores)),
	)
	r.stores = make(map[reflect.Type]Storage, 16)
	r.tags = make(map[EntityID]map[string]struct{})
	r.destroyQueue = r.destroyQueue[:0]
	r.pool.Reset()
}

// Len returns the number of live entities.
func (r *Registry) Len() int { return r.pool.Len() }

// LogStats writes a one-line summary of the registry at debug level.
func (r *Registry) LogStats() {
	r.log.Debug("registry",
		zap.Int("entities", r.pool.Len()),
		zap.Int("capacity", r.pool.Capacity()),
		zap.Int("stores", len(r.stores)),
	)
}

// ── Tags ───────────────────────────────────────────────────────────

func (r *Registry) AddTag(id EntityID, tag string) {
	r.mustBeValid(id, "add tag")
	set := r.tags[id]
	if set == nil {
		set = make(map[string]struct{}, 2)
		r.tags[id] = set
	}
	set[tag] = struct{}{}
}

func (r *Registry) RemoveTag(id EntityID, tag string) {
	if set := r.tags[id]; set != nil {
		delete(set, tag)
	}
}

func (r *Registry) HasTag(id EntityID, tag string) bool {
	_, ok := r.tags[id][tag]
	return ok
}

// EntityWithTag returns the lowest-index entity carrying tag.
func (r *Registry) EntityWithTag(tag string) (EntityID, bool) {
	ids := r.EntitiesWithTag(tag)
	if len(ids) == 0 {
		return Null, false
	}
	return ids[0], true
}

// EntitiesWithTag returns every entity carrying tag, ordered by index.
func (r *Registry) EntitiesWithTag(tag string) []EntityID {
	var ids []EntityID
	for id, set := range r.tags {
		if _, ok := set[tag]; ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b EntityID) int {
		return int(a.Index()) - int(b.Index())
	})
	return ids
}

func (r *Registry) mustBeValid(id EntityID, op string) {
	if !r.pool.Alive(id) {
		panic(fmt.Errorf("%s on %s: %w", op, id, ErrInvalidEntity))
	}
}

// ── Typed component access ─────────────────────────────────────────

// TypeKey returns the storage key for T. Components are keyed by the type
// argument they are added under, so variants added as an interface type
// share one store.
func TypeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Store returns the store for T, or nil when nothing was ever added under T.
func Store[T any](r *Registry) *ComponentStore[T] {
	s, ok := r.stores[TypeKey[T]()]
	if !ok {
		return nil
	}
	return s.(*ComponentStore[T])
}

func storeFor[T any](r *Registry) *ComponentStore[T] {
	key := TypeKey[T]()
	if s, ok := r.stores[key]; ok {
		return s.(*ComponentStore[T])
	}
	s := NewComponentStore[T]()
	r.stores[key] = s
	return s
}

// AddComponent stores c under key T for id. The entity back-reference is set
// before the component becomes visible in the store.
func AddComponent[T any](r *Registry, id EntityID, c T) T {
	r.mustBeValid(id, "add "+TypeKey[T]().String())
	if a, ok := any(c).(Attachable); ok {
		a.Attach(NewEntity(id, r))
	}
	storeFor[T](r).Add(id, c)
	return c
}

// RemoveComponent drops every instance stored under T for id.
func RemoveComponent[T any](r *Registry, id EntityID) {
	if s := Store[T](r); s != nil {
		s.Remove(id)
	}
}

// GetComponent returns the first instance stored under T for id. A missing
// component or a stale handle is a programming error and panics; guard hot
// paths with HasComponent or use TryGetComponent.
func GetComponent[T any](r *Registry, id EntityID) T {
	r.mustBeValid(id, "get "+TypeKey[T]().String())
	c, ok := TryGetComponent[T](r, id)
	if !ok {
		panic(fmt.Errorf("get %s on %s: %w", TypeKey[T](), id, ErrComponentNotFound))
	}
	return c
}

// TryGetComponent is the guarded form of GetComponent.
func TryGetComponent[T any](r *Registry, id EntityID) (T, bool) {
	s := Store[T](r)
	if s == nil || !r.pool.Alive(id) {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// GetComponents returns a snapshot of every instance stored under T for id,
// so callers may mutate the registry while iterating it.
func GetComponents[T any](r *Registry, id EntityID) []T {
	s := Store[T](r)
	if s == nil || !r.pool.Alive(id) {
		return nil
	}
	return slices.Clone(s.All(id))
}

func HasComponent[T any](r *Registry, id EntityID) bool {
	s := Store[T](r)
	return s != nil && r.pool.Alive(id) && s.Has(id)
}
