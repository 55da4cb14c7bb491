// Package health tracks per-dependency request outcomes over a rolling
// window and grades them for readiness reporting.
package health

import (
	"sync"
	"time"
)

// Status is a three-state health grade.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// Combine folds component grades into an overall grade by taking the worst.
func Combine(statuses ...Status) Status {
	overall := Pass
	for _, s := range statuses {
		if s > overall {
			overall = s
		}
	}
	return overall
}

// DefaultWindow is the rolling window over which outcomes count.
const DefaultWindow = 5 * time.Minute

// ErrorEvent is the most recent failure recorded against a dependency.
type ErrorEvent struct {
	Time     time.Time `json:"time"`
	HTTPCode int       `json:"http_code"`
	Message  string    `json:"message"`
}

// blocking errors fail every request until the account or configuration is
// fixed; overload and server faults clear on their own.
func blocking(httpCode int) bool {
	switch httpCode {
	case 400, 401, 402, 403, 404:
		return true
	}
	return false
}

type event struct {
	at     time.Time
	failed bool
}

// Tracker accumulates outcomes for one dependency.
type Tracker struct {
	mu          sync.Mutex
	window      time.Duration
	now         func() time.Time
	events      []event
	lastSuccess time.Time
	lastError   *ErrorEvent
}

func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window, now: time.Now}
}

func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	keep := t.events[:0]
	for _, e := range t.events {
		if e.at.After(cutoff) {
			keep = append(keep, e)
		}
	}
	t.events = keep
}

// RecordSuccess notes a successful request. A success proves credentials
// and configuration work again, so it clears a lingering blocking error;
// rate limiting and server faults are left to age out instead.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	t.events = append(t.events, event{at: now})
	t.lastSuccess = now
	if t.lastError != nil && blocking(t.lastError.HTTPCode) {
		t.lastError = nil
	}
}

// RecordError notes a failed request with its normalized HTTP status.
func (t *Tracker) RecordError(httpCode int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	t.events = append(t.events, event{at: now, failed: true})
	t.lastError = &ErrorEvent{Time: now, HTTPCode: httpCode, Message: message}
}

// Snapshot is a point-in-time view of one dependency's window.
type Snapshot struct {
	TotalRequests int         `json:"total_requests"`
	ErrorRate     float64     `json:"error_rate"`
	LastSuccess   time.Time   `json:"last_success,omitzero"`
	LastError     *ErrorEvent `json:"last_error,omitempty"`
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())

	snap := Snapshot{TotalRequests: len(t.events), LastSuccess: t.lastSuccess}
	if t.lastError != nil {
		errCopy := *t.lastError
		snap.LastError = &errCopy
		if t.lastError.Time.Before(t.now().Add(-t.window)) {
			snap.LastError = nil
		}
	}
	failed := 0
	for _, e := range t.events {
		if e.failed {
			failed++
		}
	}
	if len(t.events) > 0 {
		snap.ErrorRate = float64(failed) / float64(len(t.events))
	}
	return snap
}

// Thresholds control grading. Zero values take the defaults.
type Thresholds struct {
	WarnErrorRate float64
	FailErrorRate float64
	StaleAfter    time.Duration
}

const (
	defaultWarnErrorRate = 0.2
	defaultFailErrorRate = 0.5
	defaultStaleAfter    = 10 * time.Minute
)

// Evaluate grades one snapshot. A lingering blocking error, or errors with
// no success on record, fails outright; elevated error rates and a stale
// last success degrade to Warn; a dependency that has never seen traffic
// passes by default.
func Evaluate(snap Snapshot, th Thresholds) (Status, string) {
	warnRate := th.WarnErrorRate
	if warnRate <= 0 {
		warnRate = defaultWarnErrorRate
	}
	failRate := th.FailErrorRate
	if failRate <= 0 {
		failRate = defaultFailErrorRate
	}
	staleAfter := th.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	if snap.LastError != nil && blocking(snap.LastError.HTTPCode) {
		return Fail, snap.LastError.Message
	}
	if snap.LastError != nil && snap.LastSuccess.IsZero() {
		return Fail, snap.LastError.Message
	}
	if snap.ErrorRate >= failRate && snap.TotalRequests > 0 {
		return Fail, "error rate too high"
	}
	if snap.ErrorRate >= warnRate && snap.TotalRequests > 0 {
		return Warn, "elevated error rate"
	}
	if !snap.LastSuccess.IsZero() && time.Since(snap.LastSuccess) > staleAfter {
		return Warn, "no recent successful request"
	}
	if snap.LastError != nil {
		return Warn, snap.LastError.Message
	}
	return Pass, ""
}
