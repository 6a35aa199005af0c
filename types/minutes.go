package types

// BlockMinutes is the size of one owed detention unit.
const BlockMinutes int64 = 45

// WarningMinutes is the total at which a student is flagged as close to
// owing a full block.
const WarningMinutes int64 = 30

// Level classifies a running total for display.
type Level string

const (
	LevelLow     Level = "low"     // below WarningMinutes
	LevelWarning Level = "warning" // WarningMinutes up to one block
	LevelOwed    Level = "owed"    // at least one full block owed
)

// OwedCount returns the number of whole 45-minute blocks in total.
// Division is floored, so a negative total yields a negative count
// (a credit) and OwedCount(m)*BlockMinutes + Progress(m) == m holds
// for every m.
func OwedCount(total int64) int64 {
	q := total / BlockMinutes
	if total%BlockMinutes < 0 {
		q--
	}
	return q
}

// Progress returns the minutes accumulated toward the next block,
// always in [0, BlockMinutes).
func Progress(total int64) int64 {
	r := total % BlockMinutes
	if r < 0 {
		r += BlockMinutes
	}
	return r
}

// LevelFor maps a total onto its display level.
func LevelFor(total int64) Level {
	switch {
	case total >= BlockMinutes:
		return LevelOwed
	case total >= WarningMinutes:
		return LevelWarning
	default:
		return LevelLow
	}
}

// Standing is the derived view of a student's total.
type Standing struct {
	TotalMinutes int64 `json:"total_minutes"`
	Owed         int64 `json:"owed"`
	Progress     int64 `json:"progress"`
	Level        Level `json:"level"`
}

// StandingFor computes the Standing for total.
func StandingFor(total int64) Standing {
	return Standing{
		TotalMinutes: total,
		Owed:         OwedCount(total),
		Progress:     Progress(total),
		Level:        LevelFor(total),
	}
}
