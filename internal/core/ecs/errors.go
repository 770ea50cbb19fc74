package ecs

import "errors"

var (
	// ErrCapacityExhausted is returned when the pool has no free index left.
	ErrCapacityExhausted = errors.New("ecs: entity capacity exhausted")
	// ErrInvalidEntity reports a handle that was never issued or was destroyed.
	ErrInvalidEntity = errors.New("ecs: invalid entity")
	// ErrComponentNotFound reports a lookup for a component the entity lacks.
	ErrComponentNotFound = errors.New("ecs: component not found")
	// ErrHierarchyCycle is returned when a parent link would create a loop.
	ErrHierarchyCycle = errors.New("ecs: hierarchy cycle")
)
