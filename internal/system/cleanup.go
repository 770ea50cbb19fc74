package system

import (
	"go.uber.org/zap"

	coresys "github.com/quadforge/engine/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	coresys.Base
	log *zap.Logger
}

func NewCleanupSystem(log *zap.Logger) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) LateUpdate(_ float32) {
	reg := s.Registry()
	if reg == nil {
		return
	}
	if n := reg.FlushDestroyQueue(); n > 0 {
		s.log.Debug("destroyed queued entities", zap.Int("count", n))
	}
}
