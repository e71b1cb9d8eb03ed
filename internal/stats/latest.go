// Package stats holds the most recent compliance summary shared between the
// frame loop and the HTTP layer.
package stats

import (
	"sync/atomic"
	"time"

	"ppemonitor/internal/ppe"
)

// Snapshot is a compliance summary and the time it was produced.
type Snapshot struct {
	ppe.ComplianceStats
	UpdatedAt time.Time
}

// Latest is a single-slot, last-writer-wins holder. Readers never block and
// may see the value of an earlier frame than the one currently being
// processed; it is telemetry, not an input to any decision.
type Latest struct {
	v atomic.Pointer[Snapshot]
}

// NewLatest returns a holder reporting zero stats.
func NewLatest() *Latest {
	l := &Latest{}
	l.v.Store(&Snapshot{})
	return l
}

// Store replaces the current value.
func (l *Latest) Store(s ppe.ComplianceStats, at time.Time) {
	l.v.Store(&Snapshot{ComplianceStats: s, UpdatedAt: at})
}

// Load returns the current stats.
func (l *Latest) Load() ppe.ComplianceStats {
	return l.v.Load().ComplianceStats
}

// Snapshot returns the current value with its timestamp.
func (l *Latest) Snapshot() Snapshot {
	return *l.v.Load()
}
