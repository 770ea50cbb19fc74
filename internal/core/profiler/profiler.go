// Package profiler accumulates wall time per named section of the frame.
package profiler

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Section is the accumulated timing of one named section.
type Section struct {
	Name  string
	Total time.Duration
	Max   time.Duration
	Count int
}

// Avg returns the mean duration per call.
func (s Section) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Profiler is not safe for concurrent use. It lives on the frame goroutine.
type Profiler struct {
	sections map[string]*Section
	now      func() time.Time
}

func New() *Profiler {
	return &Profiler{
		sections: make(map[string]*Section, 8),
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (p *Profiler) SetClock(now func() time.Time) { p.now = now }

// Begin starts timing name. The returned func stops it.
//
//	defer prof.Begin("render")()
func (p *Profiler) Begin(name string) func() {
	start := p.now()
	return func() { p.Record(name, p.now().Sub(start)) }
}

// Record adds one sample of d to name.
func (p *Profiler) Record(name string, d time.Duration) {
	s, ok := p.sections[name]
	if !ok {
		s = &Section{Name: name}
		p.sections[name] = s
	}
	s.Total += d
	s.Count++
	if d > s.Max {
		s.Max = d
	}
}

// Sections returns a snapshot sorted by name.
func (p *Profiler) Sections() []Section {
	out := make([]Section, 0, len(p.sections))
	for _, s := range p.sections {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *Profiler) Reset() {
	clear(p.sections)
}

// Report logs every section at debug level.
func (p *Profiler) Report(log *zap.Logger) {
	if log == nil || len(p.sections) == 0 {
		return
	}
	log.Debug("profiling report", zap.Int("sections", len(p.sections)))
	for _, s := range p.Sections() {
		log.Debug("section",
			zap.String("name", s.Name),
			zap.Duration("total", s.Total),
			zap.Int("calls", s.Count),
			zap.Duration("avg", s.Avg()),
			zap.Duration("max", s.Max),
		)
	}
}
