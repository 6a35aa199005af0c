// Package student defines the Student entity, its store contract and the
// roster orderings used by presentation layers.
package student

import (
	"sort"

	"github.com/xraph/detention/id"
	"github.com/xraph/detention/types"
)

// Student belongs to exactly one class. TotalMinutes is a cached
// aggregate equal to the sum of the student's entry deltas; only the
// store's compound entry operations may change it.
type Student struct {
	types.Entity
	ID           id.StudentID `json:"id"`
	ClassID      id.ClassID   `json:"class_id"`
	Name         string       `json:"name"`
	TotalMinutes int64        `json:"total_minutes"`
}

// Standing returns the derived owed/progress view of the student's total.
func (s *Student) Standing() types.Standing {
	return types.StandingFor(s.TotalMinutes)
}

// Order selects the direction of a roster sort.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

// ParseOrder maps user input onto an Order, defaulting to OrderDesc.
func ParseOrder(s string) Order {
	if Order(s) == OrderAsc {
		return OrderAsc
	}
	return OrderDesc
}

// SortByTotal orders students in place by TotalMinutes. Ties keep name
// order so the roster does not jump around between renders.
func SortByTotal(students []*Student, order Order) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.TotalMinutes != b.TotalMinutes {
			if order == OrderAsc {
				return a.TotalMinutes < b.TotalMinutes
			}
			return a.TotalMinutes > b.TotalMinutes
		}
		return a.Name < b.Name
	})
}
