package ecs

// Storage is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy, and tear every
// store down on Clear, without knowing the component type.
type Storage interface {
	Remove(id EntityID)
	Has(id EntityID) bool
	IDs() []EntityID
	Len() int
	Clear()
}

// Attachable components receive their owning entity when added.
type Attachable interface {
	Attach(e Entity)
}

// Disposer components are notified when their store drops them.
type Disposer interface {
	Dispose()
}

// Base is embedded by components that need to know which entity and
// registry they belong to. The reference is weak: it is a handle, not
// ownership.
type Base struct {
	entity Entity
}

func (b *Base) Attach(e Entity)     { b.entity = e }
func (b *Base) Entity() Entity      { return b.entity }
func (b *Base) EntityID() EntityID  { return b.entity.id }
func (b *Base) Registry() *Registry { return b.entity.reg }

// ComponentStore is a generic typed map store for ECS components. An entity
// may hold several instances under the same key type; the store owns them
// all. T is normally a pointer to a struct or an interface type.
type ComponentStore[T any] struct {
	data map[EntityID][]T
}

func NewComponentStore[T any]() *ComponentStore[T] {
	return &ComponentStore[T]{
		data: make(map[EntityID][]T, 256),
	}
}

// Add appends c to the instances held by id.
func (s *ComponentStore[T]) Add(id EntityID, c T) {
	s.data[id] = append(s.data[id], c)
}

// Get returns the first instance held by id.
func (s *ComponentStore[T]) Get(id EntityID) (T, bool) {
	cs := s.data[id]
	if len(cs) == 0 {
		var zero T
		return zero, false
	}
	return cs[0], true
}

// All returns the instances held by id. The slice is owned by the store.
func (s *ComponentStore[T]) All(id EntityID) []T {
	return s.data[id]
}

func (s *ComponentStore[T]) Remove(id EntityID) {
	cs, ok := s.data[id]
	if !ok {
		return
	}
	delete(s.data, id)
	dispose(cs)
}

// RemoveFunc drops the instances of id for which match returns true.
func (s *ComponentStore[T]) RemoveFunc(id EntityID, match func(T) bool) int {
	cs := s.data[id]
	kept := cs[:0:0]
	var dropped []T
	for _, c := range cs {
		if match(c) {
			dropped = append(dropped, c)
		} else {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(s.data, id)
	} else {
		s.data[id] = kept
	}
	dispose(dropped)
	return len(dropped)
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	return len(s.data[id]) > 0
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

func (s *ComponentStore[T]) Clear() {
	data := s.data
	s.data = make(map[EntityID][]T, 256)
	for _, cs := range data {
		dispose(cs)
	}
}

// IDs returns a snapshot of the entities present in the store.
func (s *ComponentStore[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids
}

// Each visits the first instance of every entity in the store.
func (s *ComponentStore[T]) Each(fn func(EntityID, T)) {
	for id, cs := range s.data {
		fn(id, cs[0])
	}
}

func dispose[T any](cs []T) {
	for _, c := range cs {
		if d, ok := any(c).(Disposer); ok {
			d.Dispose()
		}
	}
}
