package ecs

import (
	"fmt"
	"slices"
)

// Parent records the parent of an entity. Links are created by SetParent;
// dropping a Parent by any route also drops the child from its parent's
// Children, so both sides always agree.
type Parent struct {
	Base
	id EntityID
}

func (p *Parent) ID() EntityID { return p.id }

func (p *Parent) Dispose() {
	r := p.Registry()
	if r == nil || r.clearing {
		return
	}
	ch, ok := TryGetComponent[*Children](r, p.id)
	if !ok {
		return
	}
	delete(ch.ids, p.EntityID())
	if len(ch.ids) == 0 {
		RemoveComponent[*Children](r, p.id)
	}
}

// Children records the direct children of an entity.
type Children struct {
	Base
	ids map[EntityID]struct{}
}

func (c *Children) Has(id EntityID) bool {
	_, ok := c.ids[id]
	return ok
}

func (c *Children) Len() int { return len(c.ids) }

// Dispose orphans the remaining children.
func (c *Children) Dispose() {
	r := c.Registry()
	if r == nil || r.clearing {
		return
	}
	ids := c.ids
	c.ids = nil
	for child := range ids {
		RemoveComponent[*Parent](r, child)
	}
}

// IDs returns the children ordered by index.
func (c *Children) IDs() []EntityID {
	ids := make([]EntityID, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b EntityID) int {
		return int(a.Index()) - int(b.Index())
	})
	return ids
}

// SetParent makes parent the parent of child, replacing any previous link.
func SetParent(r *Registry, child, parent EntityID) error {
	if !r.IsValidEntity(child) {
		return fmt.Errorf("set parent: child %s: %w", child, ErrInvalidEntity)
	}
	if !r.IsValidEntity(parent) {
		return fmt.Errorf("set parent: parent %s: %w", parent, ErrInvalidEntity)
	}
	for cur, ok := parent, true; ok; cur, ok = ParentOf(r, cur) {
		if cur == child {
			return fmt.Errorf("set parent %s -> %s: %w", child, parent, ErrHierarchyCycle)
		}
	}

	Unparent(r, child)
	AddComponent(r, child, &Parent{id: parent})
	ch, ok := TryGetComponent[*Children](r, parent)
	if !ok {
		ch = AddComponent(r, parent, &Children{ids: make(map[EntityID]struct{}, 4)})
	}
	ch.ids[child] = struct{}{}
	return nil
}

// Unparent breaks the link between child and its parent, on both sides.
func Unparent(r *Registry, child EntityID) {
	RemoveComponent[*Parent](r, child)
}

func ParentOf(r *Registry, id EntityID) (EntityID, bool) {
	p, ok := TryGetComponent[*Parent](r, id)
	if !ok {
		return Null, false
	}
	return p.id, true
}

func ChildrenOf(r *Registry, id EntityID) []EntityID {
	ch, ok := TryGetComponent[*Children](r, id)
	if !ok {
		return nil
	}
	return ch.IDs()
}

// unlinkHierarchy detaches id from its parent and orphans its children.
func (r *Registry) unlinkHierarchy(id EntityID) {
	Unparent(r, id)
	RemoveComponent[*Children](r, id)
}
