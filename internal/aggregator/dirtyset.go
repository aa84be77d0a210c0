package aggregator

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// dirtyEntry records one pending partition and when it first went dirty.
type dirtyEntry struct {
	Partition Partition
	Since     time.Time
	// NotBefore defers the partition past its backoff window. Zero means
	// eligible immediately.
	NotBefore time.Time
}

// DirtySet is the concurrent pending-work set. Repeated marks of the same
// partition collapse into one entry keeping the earliest dirty-since time.
type DirtySet struct {
	entries *xsync.Map[string, dirtyEntry]
}

func NewDirtySet() *DirtySet {
	return &DirtySet{entries: xsync.NewMap[string, dirtyEntry]()}
}

// Mark records the partition as dirty. An existing entry keeps its Since but
// loses any backoff deferral, so a fresh data change always makes the next
// cycle pick the partition up.
func (s *DirtySet) Mark(p Partition, now time.Time) {
	s.entries.Compute(p.Key(), func(old dirtyEntry, loaded bool) (dirtyEntry, xsync.ComputeOp) {
		if loaded {
			old.NotBefore = time.Time{}
			return old, xsync.UpdateOp
		}
		return dirtyEntry{Partition: p, Since: now}, xsync.UpdateOp
	})
}

// Defer re-queues a failed partition with a not-before gate. The original
// Since is preserved so age metrics reflect the first mark.
func (s *DirtySet) Defer(p Partition, since, notBefore time.Time) {
	s.entries.Compute(p.Key(), func(old dirtyEntry, loaded bool) (dirtyEntry, xsync.ComputeOp) {
		if loaded {
			// A concurrent Mark wins: the partition has new data and
			// should not wait out the old failure's backoff.
			return old, xsync.CancelOp
		}
		return dirtyEntry{Partition: p, Since: since, NotBefore: notBefore}, xsync.UpdateOp
	})
}

// Drain removes and returns every entry eligible at now. Entries still inside
// their backoff window stay in the set.
func (s *DirtySet) Drain(now time.Time) []dirtyEntry {
	var eligible []dirtyEntry
	s.entries.Range(func(key string, e dirtyEntry) bool {
		if !e.NotBefore.IsZero() && now.Before(e.NotBefore) {
			return true
		}
		if _, ok := s.entries.LoadAndDelete(key); ok {
			eligible = append(eligible, e)
		}
		return true
	})
	return eligible
}

// Len reports the number of pending partitions, deferred ones included.
func (s *DirtySet) Len() int {
	return s.entries.Size()
}
