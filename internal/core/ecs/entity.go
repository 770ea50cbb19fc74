package ecs

import "fmt"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero value never names a live entity.
type EntityID uint64

// Null is the zero handle. It is never valid.
const Null EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == Null }

func (id EntityID) String() string {
	return fmt.Sprintf("%d#%d", id.Index(), id.Generation())
}

// EntityPool manages entity allocation with generational indices and a free
// list, bounded by a fixed capacity.
type EntityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	capacity    uint32
	live        int
}

func NewEntityPool(capacity int) *EntityPool {
	if capacity <= 0 {
		capacity = 1
	}
	return &EntityPool{
		generations: make([]uint32, 0, min(capacity, 1024)),
		alive:       make([]bool, 0, min(capacity, 1024)),
		freeList:    make([]uint32, 0, 256),
		capacity:    uint32(capacity),
	}
}

// Create hands out the oldest recycled index first and a fresh one
// otherwise.
func (p *EntityPool) Create() (EntityID, error) {
	if len(p.freeList) > 0 {
		idx := p.freeList[0]
		p.freeList = p.freeList[1:]
		p.alive[idx] = true
		p.live++
		return NewEntityID(idx, p.generations[idx]), nil
	}
	if p.nextIndex >= p.capacity {
		return Null, fmt.Errorf("create entity (capacity %d): %w", p.capacity, ErrCapacityExhausted)
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	p.alive = append(p.alive, true)
	p.live++
	return NewEntityID(idx, 1), nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.alive[idx] && p.generations[idx] == id.Generation()
}

// Destroy releases id. Stale or unknown handles are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.alive[idx] = false
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Reset forgets every issued handle. Generations are kept so that handles
// issued before the reset stay invalid afterwards.
func (p *EntityPool) Reset() {
	p.freeList = p.freeList[:0]
	for idx := uint32(0); idx < p.nextIndex; idx++ {
		if p.alive[idx] {
			p.alive[idx] = false
			p.generations[idx]++
			if p.generations[idx] == 0 {
				p.generations[idx] = 1
			}
		}
		p.freeList = append(p.freeList, idx)
	}
	p.live = 0
}

func (p *EntityPool) Len() int      { return p.live }
func (p *EntityPool) Capacity() int { return int(p.capacity) }

// Entity pairs a handle with the registry that issued it.
type Entity struct {
	id  EntityID
	reg *Registry
}

func NewEntity(id EntityID, reg *Registry) Entity {
	return Entity{id: id, reg: reg}
}

func (e Entity) ID() EntityID           { return e.id }
func (e Entity) Registry() *Registry    { return e.reg }
func (e Entity) AddTag(tag string)      { e.reg.AddTag(e.id, tag) }
func (e Entity) HasTag(tag string) bool { return e.reg.HasTag(e.id, tag) }
func (e Entity) Destroy()               { e.reg.DestroyEntity(e.id) }

func (e Entity) IsValid() bool {
	return e.reg != nil && e.reg.IsValidEntity(e.id)
}

func (e Entity) String() string { return e.id.String() }
