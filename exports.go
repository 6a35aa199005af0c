package detention

import "github.com/xraph/detention/types"

// Re-export common types so callers rendering totals need not import
// the types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Standing is re-exported from types package.
type Standing = types.Standing

// Level is re-exported from types package.
type Level = types.Level

// BlockMinutes is the size of one owed detention unit.
const BlockMinutes = types.BlockMinutes

// Re-export minute arithmetic.
var (
	OwedCount   = types.OwedCount
	Progress    = types.Progress
	LevelFor    = types.LevelFor
	StandingFor = types.StandingFor
)
