package delivery

import "sync"

// Family is a dedup grouping key, independent of schedule.
type Family string

const (
	FamilyMetrics Family = "metrics"
	FamilySleep   Family = "sleep"
)

// DedupGate rejects a payload whose logical timestamp matches the last
// payload accepted into a delivery attempt for the same family. The marker
// is set before the network call and never rolled back on delivery failure:
// a missed interval is superseded by the next cycle's payload, not retried.
type DedupGate struct {
	mu       sync.Mutex
	lastSent map[Family]string
}

// NewDedupGate creates an empty gate.
func NewDedupGate() *DedupGate {
	return &DedupGate{lastSent: make(map[Family]string)}
}

// ShouldSend reports whether the timestamp differs from the family's last
// accepted one.
func (g *DedupGate) ShouldSend(family Family, logicalTimestamp string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSent[family] != logicalTimestamp
}

// MarkSent records the timestamp as the family's last accepted one.
func (g *DedupGate) MarkSent(family Family, logicalTimestamp string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSent[family] = logicalTimestamp
}

// Acquire atomically performs the check-and-mark: it returns true exactly
// once per distinct timestamp even under racing triggers, and the winner is
// expected to proceed to the delivery attempt.
func (g *DedupGate) Acquire(family Family, logicalTimestamp string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastSent[family] == logicalTimestamp {
		return false
	}
	g.lastSent[family] = logicalTimestamp
	return true
}

// Last returns the family's last accepted timestamp, empty if none.
func (g *DedupGate) Last(family Family) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSent[family]
}
