package health

import (
	"sort"
	"sync"
	"time"
)

// Registry holds one tracker per named dependency (each speech vendor, the
// chat upstream). Trackers appear on first use so configuration changes
// never need a registry rebuild.
type Registry struct {
	mu       sync.Mutex
	window   time.Duration
	trackers map[string]*Tracker
}

func NewRegistry(window time.Duration) *Registry {
	return &Registry{window: window, trackers: make(map[string]*Tracker)}
}

func (r *Registry) Tracker(name string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[name]
	if !ok {
		t = NewTracker(r.window)
		r.trackers[name] = t
	}
	return t
}

// Check is one dependency's graded snapshot.
type Check struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Output   string   `json:"output,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

// Report grades every tracked dependency and combines them.
func (r *Registry) Report(th Thresholds) (Status, []Check) {
	r.mu.Lock()
	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	overall := Pass
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		snap := r.Tracker(name).Snapshot()
		status, output := Evaluate(snap, th)
		overall = Combine(overall, status)
		checks = append(checks, Check{
			Name:     name,
			Status:   status.String(),
			Output:   output,
			Snapshot: snap,
		})
	}
	return overall, checks
}
