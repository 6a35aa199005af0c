// Package class defines the Class entity and its store contract.
package class

import (
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/types"
)

// Class is a named roster of students. Classes are created once and
// never renamed or deleted.
type Class struct {
	types.Entity
	ID   id.ClassID `json:"id"`
	Name string     `json:"name"`
}
