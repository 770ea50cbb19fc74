package ecs

import (
	"errors"
	"slices"
	"testing"
)

func TestSetParentIsMutual(t *testing.T) {
	r := newTestRegistry(t, 16)
	root := mustCreate(t, r)
	a := mustCreate(t, r)
	b := mustCreate(t, r)

	for _, child := range []EntityID{a, b} {
		if err := SetParent(r, child, root); err != nil {
			t.Fatalf("set parent: %v", err)
		}
	}
	if p, ok := ParentOf(r, a); !ok || p != root {
		t.Fatalf("ParentOf(a) = %s, %v", p, ok)
	}
	if got := ChildrenOf(r, root); !slices.Equal(got, []EntityID{a, b}) {
		t.Fatalf("ChildrenOf(root) = %v", got)
	}
}

func TestReparentMovesChild(t *testing.T) {
	r := newTestRegistry(t, 16)
	p1 := mustCreate(t, r)
	p2 := mustCreate(t, r)
	c := mustCreate(t, r)

	if err := SetParent(r, c, p1); err != nil {
		t.Fatal(err)
	}
	if err := SetParent(r, c, p2); err != nil {
		t.Fatal(err)
	}
	if HasComponent[*Children](r, p1) {
		t.Error("old parent still lists the child")
	}
	if got := ChildrenOf(r, p2); !slices.Equal(got, []EntityID{c}) {
		t.Errorf("new parent children = %v", got)
	}
}

func TestUnparent(t *testing.T) {
	r := newTestRegistry(t, 16)
	p := mustCreate(t, r)
	c := mustCreate(t, r)
	if err := SetParent(r, c, p); err != nil {
		t.Fatal(err)
	}
	Unparent(r, c)
	if _, ok := ParentOf(r, c); ok {
		t.Error("child still has a parent")
	}
	if len(ChildrenOf(r, p)) != 0 {
		t.Error("parent still lists the child")
	}
}

func TestSetParentRejectsCycles(t *testing.T) {
	r := newTestRegistry(t, 16)
	a := mustCreate(t, r)
	b := mustCreate(t, r)
	c := mustCreate(t, r)
	if err := SetParent(r, b, a); err != nil {
		t.Fatal(err)
	}
	if err := SetParent(r, c, b); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		child, parent EntityID
	}{
		{"self", a, a},
		{"direct", a, b},
		{"indirect", a, c},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := SetParent(r, tc.child, tc.parent); !errors.Is(err, ErrHierarchyCycle) {
				t.Fatalf("expected ErrHierarchyCycle, got %v", err)
			}
		})
	}
}

func TestDestroyUnlinksHierarchy(t *testing.T) {
	r := newTestRegistry(t, 16)
	root := mustCreate(t, r)
	mid := mustCreate(t, r)
	leaf := mustCreate(t, r)
	if err := SetParent(r, mid, root); err != nil {
		t.Fatal(err)
	}
	if err := SetParent(r, leaf, mid); err != nil {
		t.Fatal(err)
	}

	r.DestroyEntity(mid)

	if len(ChildrenOf(r, root)) != 0 {
		t.Error("root still lists destroyed child")
	}
	if _, ok := ParentOf(r, leaf); ok {
		t.Error("orphan still points at destroyed parent")
	}
}

func TestSetParentInvalidHandle(t *testing.T) {
	r := newTestRegistry(t, 16)
	a := mustCreate(t, r)
	b := mustCreate(t, r)
	r.DestroyEntity(b)
	if err := SetParent(r, a, b); !errors.Is(err, ErrInvalidEntity) {
		t.Fatalf("expected ErrInvalidEntity, got %v", err)
	}
}

func TestRemovingLinkComponentsKeepsHierarchyMutual(t *testing.T) {
	r := newTestRegistry(t, 16)
	p := mustCreate(t, r)
	a := mustCreate(t, r)
	b := mustCreate(t, r)
	for _, child := range []EntityID{a, b} {
		if err := SetParent(r, child, p); err != nil {
			t.Fatal(err)
		}
	}

	RemoveComponent[*Parent](r, a)
	if _, ok := ParentOf(r, a); ok {
		t.Fatal("child still has a parent")
	}
	if got := ChildrenOf(r, p); !slices.Equal(got, []EntityID{b}) {
		t.Fatalf("parent children = %v, want only %s", got, b)
	}

	RemoveComponent[*Children](r, p)
	if _, ok := ParentOf(r, b); ok {
		t.Fatal("child still points at a parent without Children")
	}

	if err := SetParent(r, a, b); err != nil {
		t.Fatal(err)
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("entities after clear = %d", r.Len())
	}
}
