package event

import "github.com/quadforge/engine/internal/core/ecs"

// ContactPhase tells whether a contact started or ended.
type ContactPhase uint8

const (
	ContactEnter ContactPhase = iota
	ContactExit
)

func (p ContactPhase) String() string {
	if p == ContactEnter {
		return "enter"
	}
	return "exit"
}

// Contact is emitted by the physics system when Self starts or stops
// touching Other. One event is emitted per direction.
type Contact struct {
	Phase   ContactPhase
	Self    ecs.EntityID
	Other   ecs.EntityID
	Trigger bool
}

type SceneLoaded struct {
	Name string
}

type SceneUnloaded struct {
	Name string
}
