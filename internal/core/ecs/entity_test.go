package ecs

import (
	"errors"
	"math/rand"
	"testing"
)

func TestPoolCapacityExhausted(t *testing.T) {
	p := NewEntityPool(3)
	for i := 0; i < 3; i++ {
		if _, err := p.Create(); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := p.Create(); !errors.Is(err, ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
}

func TestPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool(1)
	a, _ := p.Create()
	if !p.Destroy(a) {
		t.Fatal("destroy of live handle reported false")
	}
	b, err := p.Create()
	if err != nil {
		t.Fatalf("create after destroy: %v", err)
	}
	if a.Index() != b.Index() {
		t.Fatalf("expected index reuse, got %d and %d", a.Index(), b.Index())
	}
	if a == b {
		t.Fatal("recycled handle equals stale handle")
	}
	if p.Alive(a) {
		t.Error("stale handle reported alive")
	}
	if !p.Alive(b) {
		t.Error("recycled handle reported dead")
	}
	if p.Destroy(a) {
		t.Error("destroying a stale handle must be a no-op")
	}
}

func TestNullNeverAlive(t *testing.T) {
	p := NewEntityPool(4)
	id, _ := p.Create()
	if id.IsZero() {
		t.Fatal("first handle must not be Null")
	}
	if p.Alive(Null) {
		t.Fatal("Null reported alive")
	}
}

// Random create/destroy sequences never yield two live entities sharing a handle.
func TestPoolHandleUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewEntityPool(64)
	live := make(map[EntityID]bool)
	var order []EntityID

	for step := 0; step < 5000; step++ {
		if len(order) > 0 && (rng.Intn(2) == 0 || len(order) == 64) {
			i := rng.Intn(len(order))
			id := order[i]
			order = append(order[:i], order[i+1:]...)
			delete(live, id)
			p.Destroy(id)
			continue
		}
		id, err := p.Create()
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if live[id] {
			t.Fatalf("step %d: handle %s issued twice", step, id)
		}
		live[id] = true
		order = append(order, id)
	}
	if p.Len() != len(live) {
		t.Fatalf("pool reports %d live, expected %d", p.Len(), len(live))
	}
}

func TestPoolReset(t *testing.T) {
	p := NewEntityPool(2)
	a, _ := p.Create()
	b, _ := p.Create()
	p.Reset()
	if p.Alive(a) || p.Alive(b) {
		t.Fatal("handles survived Reset")
	}
	if p.Len() != 0 {
		t.Fatalf("expected 0 live after reset, got %d", p.Len())
	}
	for i := 0; i < 2; i++ {
		if _, err := p.Create(); err != nil {
			t.Fatalf("create after reset: %v", err)
		}
	}
}
