package detention

import "github.com/xraph/detention/id"

// ID is the primary identifier type for all detention entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
