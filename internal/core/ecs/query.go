package ecs

import "reflect"

// EntityIDsWith returns the entities present in every store named by keys.
// It iterates the smallest store and checks the others. The result is a
// snapshot in unspecified order.
func EntityIDsWith(r *Registry, keys ...reflect.Type) []EntityID {
	if len(keys) == 0 {
		return nil
	}
	stores := make([]Storage, 0, len(keys))
	smallest := -1
	for _, k := range keys {
		s, ok := r.stores[k]
		if !ok {
			return nil
		}
		if smallest < 0 || s.Len() < stores[smallest].Len() {
			smallest = len(stores)
		}
		stores = append(stores, s)
	}

	base := stores[smallest].IDs()
	result := base[:0]
	for _, id := range base {
		if !r.pool.Alive(id) {
			continue
		}
		all := true
		for i, s := range stores {
			if i != smallest && !s.Has(id) {
				all = false
				break
			}
		}
		if all {
			result = append(result, id)
		}
	}
	return result
}

func With[A any](r *Registry) []EntityID {
	return EntityIDsWith(r, TypeKey[A]())
}

func With2[A, B any](r *Registry) []EntityID {
	return EntityIDsWith(r, TypeKey[A](), TypeKey[B]())
}

func With3[A, B, C any](r *Registry) []EntityID {
	return EntityIDsWith(r, TypeKey[A](), TypeKey[B](), TypeKey[C]())
}

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
func Each2[A, B any](r *Registry, fn func(EntityID, A, B)) {
	sa, sb := Store[A](r), Store[B](r)
	if sa == nil || sb == nil {
		return
	}
	for _, id := range With2[A, B](r) {
		a, okA := sa.Get(id)
		b, okB := sb.Get(id)
		if okA && okB {
			fn(id, a, b)
		}
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](r *Registry, fn func(EntityID, A, B, C)) {
	sa, sb, sc := Store[A](r), Store[B](r), Store[C](r)
	if sa == nil || sb == nil || sc == nil {
		return
	}
	for _, id := range With3[A, B, C](r) {
		a, okA := sa.Get(id)
		b, okB := sb.Get(id)
		c, okC := sc.Get(id)
		if okA && okB && okC {
			fn(id, a, b, c)
		}
	}
}
