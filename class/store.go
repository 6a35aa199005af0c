package class

import (
	"context"

	"github.com/xraph/detention/id"
)

// Store persists classes.
type Store interface {
	CreateClass(ctx context.Context, c *Class) error
	GetClass(ctx context.Context, classID id.ClassID) (*Class, error)
	// ListClasses returns every class ordered by name ascending.
	ListClasses(ctx context.Context) ([]*Class, error)
}
