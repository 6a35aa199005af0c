// Package store defines the unified persistence contract for the
// detention ledger. Backends live in the sub-packages.
package store

import (
	"context"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/student"
)

// Store is the unified storage interface for all detention entities.
// The entity method sets carry distinct names so they can be embedded
// without conflict.
type Store interface {
	class.Store
	student.Store
	entry.Store

	// Migrate brings the backend schema up to date.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
