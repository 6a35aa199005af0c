package audithook

// Action constants for audit events.
const (
	// Roster actions
	ActionClassCreated     = "class.created"
	ActionStudentCreated   = "student.created"
	ActionStudentsImported = "students.imported"

	// Ledger actions
	ActionEntryAdded      = "entry.added"
	ActionEntryServed     = "entry.served"
	ActionEntryUndone     = "entry.undone"
	ActionTotalReconciled = "total.reconciled"
)

// Resource constants for audit events.
const (
	ResourceClass   = "class"
	ResourceStudent = "student"
	ResourceEntry   = "entry"
)

// Category constants for audit events.
const (
	CategoryRoster     = "roster"
	CategoryDiscipline = "discipline"
	CategoryIntegrity  = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
