// Package entry defines ledger entries, the signed minute adjustments
// that make up a student's history.
package entry

import (
	"time"

	"github.com/xraph/detention/id"
)

// Entry is one signed minute adjustment. Entries are append-only; the
// only removal path is undoing the most recent one.
type Entry struct {
	ID        id.EntryID   `json:"id"`
	StudentID id.StudentID `json:"student_id"`
	Timestamp time.Time    `json:"timestamp"`
	// Seq breaks ties between entries sharing a Timestamp. It is strictly
	// increasing in insertion order.
	Seq          int64  `json:"seq"`
	DeltaMinutes int64  `json:"delta_minutes"`
	Note         string `json:"note"`
	// Served45 is set only on entries recorded by the serve operation.
	Served45 bool `json:"served45"`
}

// Before reports whether e sorts before other in ledger order.
func (e *Entry) Before(other *Entry) bool {
	if !e.Timestamp.Equal(other.Timestamp) {
		return e.Timestamp.Before(other.Timestamp)
	}
	return e.Seq < other.Seq
}
