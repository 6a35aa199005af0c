package detention

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/plugin"
	"github.com/xraph/detention/roster"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/student"
	"github.com/xraph/detention/types"
)

// ServedNote is the note recorded on entries created by MarkServed45.
const ServedNote = "Served 45 minutes detention"

// Tracker is the detention ledger engine. It validates commands, stamps
// identifiers, timestamps and sequence numbers, and delegates each
// mutation to a single atomic store operation.
type Tracker struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock
	seq     sequencer
}

// New creates a new Tracker instance.
func New(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   systemClock{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Option configures a Tracker instance.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Tracker) {
		_ = t.plugins.Register(p) //nolint:errcheck // duplicate names are logged by the registry
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// Store returns the underlying store.
func (t *Tracker) Store() store.Store { return t.store }

// Plugins returns the plugin registry.
func (t *Tracker) Plugins() *plugin.Registry { return t.plugins }

// Start migrates the store and initializes plugins.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.store.Migrate(ctx); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("detention tracker started",
		"plugins", t.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (t *Tracker) Stop() error {
	t.plugins.EmitShutdown(context.Background())
	return t.store.Close()
}

// Ping checks that the store is reachable.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.wrap("ping", t.store.Ping(ctx))
}

// ──────────────────────────────────────────────────
// Classes
// ──────────────────────────────────────────────────

// CreateClass creates a class with the trimmed name.
func (t *Tracker) CreateClass(ctx context.Context, name string) (*class.Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "class name is required"}
	}

	c := &class.Class{
		Entity: types.NewEntityAt(t.now()),
		ID:     id.NewClassID(),
		Name:   name,
	}
	if err := t.store.CreateClass(ctx, c); err != nil {
		return nil, t.wrap("create class", err)
	}

	t.plugins.EmitClassCreated(ctx, c)
	t.logger.Debug("class created", "class_id", c.ID.String(), "name", c.Name)

	return c, nil
}

// GetClass returns a class by ID.
func (t *Tracker) GetClass(ctx context.Context, classID id.ClassID) (*class.Class, error) {
	if classID.IsNil() {
		return nil, ValidationError{Field: "class_id", Message: "class id is required"}
	}
	c, err := t.store.GetClass(ctx, classID)
	return c, t.wrap("get class", err)
}

// GetClasses returns all classes ordered by name.
func (t *Tracker) GetClasses(ctx context.Context) ([]*class.Class, error) {
	classes, err := t.store.ListClasses(ctx)
	return classes, t.wrap("list classes", err)
}

// ──────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────

// AddStudent adds a single student with a zero total to a class.
func (t *Tracker) AddStudent(ctx context.Context, classID id.ClassID, name string) (*student.Student, error) {
	if classID.IsNil() {
		return nil, ValidationError{Field: "class_id", Message: "class id is required"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "student name is required"}
	}

	s := t.newStudent(classID, name)
	if err := t.store.CreateStudent(ctx, s); err != nil {
		return nil, t.wrap("create student", err)
	}

	t.plugins.EmitStudentCreated(ctx, s)
	t.logger.Debug("student added", "student_id", s.ID.String(), "class_id", classID.String())

	return s, nil
}

// GetStudent returns a student by ID.
func (t *Tracker) GetStudent(ctx context.Context, studentID id.StudentID) (*student.Student, error) {
	if studentID.IsNil() {
		return nil, ValidationError{Field: "student_id", Message: "student id is required"}
	}
	s, err := t.store.GetStudent(ctx, studentID)
	return s, t.wrap("get student", err)
}

// GetStudentsByClass returns the class's students in no particular
// order. Use student.SortByTotal for display ordering.
func (t *Tracker) GetStudentsByClass(ctx context.Context, classID id.ClassID) ([]*student.Student, error) {
	students, err := t.store.ListStudents(ctx, classID)
	return students, t.wrap("list students", err)
}

// ClearStudentsFromClass removes every student of the class, and their
// entries, returning how many students were removed. An unknown class is
// ErrClassNotFound.
func (t *Tracker) ClearStudentsFromClass(ctx context.Context, classID id.ClassID) (int64, error) {
	if classID.IsNil() {
		return 0, ValidationError{Field: "class_id", Message: "class id is required"}
	}
	if _, err := t.store.GetClass(ctx, classID); err != nil {
		return 0, t.wrap("get class", err)
	}
	n, err := t.store.DeleteStudentsByClass(ctx, classID)
	if err != nil {
		return 0, t.wrap("clear students", err)
	}

	t.logger.Info("class students cleared", "class_id", classID.String(), "removed", n)

	return n, nil
}

// ImportStudents bulk-inserts students with zero totals. Names are
// trimmed and blank names dropped. Existing students are kept; use
// ReplaceStudents for the clear-then-import workflow.
func (t *Tracker) ImportStudents(ctx context.Context, classID id.ClassID, names []string) ([]*student.Student, error) {
	students, err := t.buildImport(classID, names)
	if err != nil {
		return nil, err
	}
	if err := t.store.CreateStudents(ctx, students); err != nil {
		return nil, t.wrap("import students", err)
	}

	t.plugins.EmitStudentsImported(ctx, classID, students, 0)
	t.logger.Info("students imported", "class_id", classID.String(), "count", len(students))

	return students, nil
}

// ReplaceStudents clears the class and imports names as one atomic
// operation. On failure the previous roster is left intact.
func (t *Tracker) ReplaceStudents(ctx context.Context, classID id.ClassID, names []string) ([]*student.Student, error) {
	students, err := t.buildImport(classID, names)
	if err != nil {
		return nil, err
	}
	removed, err := t.store.ReplaceStudents(ctx, classID, students)
	if err != nil {
		return nil, t.wrap("replace students", err)
	}

	t.plugins.EmitStudentsImported(ctx, classID, students, removed)
	t.logger.Info("class roster replaced",
		"class_id", classID.String(),
		"removed", removed,
		"imported", len(students),
	)

	return students, nil
}

// ImportRoster parses pasted text (comma or newline separated) and
// replaces the class roster with the result.
func (t *Tracker) ImportRoster(ctx context.Context, classID id.ClassID, text string) ([]*student.Student, error) {
	return t.ReplaceStudents(ctx, classID, roster.Parse(text))
}

func (t *Tracker) buildImport(classID id.ClassID, names []string) ([]*student.Student, error) {
	if classID.IsNil() {
		return nil, ValidationError{Field: "class_id", Message: "class id is required"}
	}
	students := make([]*student.Student, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		students = append(students, t.newStudent(classID, n))
	}
	if len(students) == 0 {
		return nil, ValidationError{Field: "names", Message: "at least one student name is required"}
	}
	return students, nil
}

func (t *Tracker) newStudent(classID id.ClassID, name string) *student.Student {
	return &student.Student{
		Entity:  types.NewEntityAt(t.now()),
		ID:      id.NewStudentID(),
		ClassID: classID,
		Name:    name,
	}
}

// ──────────────────────────────────────────────────
// Ledger entries
// ──────────────────────────────────────────────────

// AddEntry records a signed minute adjustment and applies it to the
// student's total in the same unit of work. Zero deltas are rejected.
func (t *Tracker) AddEntry(ctx context.Context, studentID id.StudentID, deltaMinutes int64, note string) (*entry.Entry, error) {
	if deltaMinutes == 0 {
		return nil, ValidationError{Field: "delta_minutes", Message: "must be non-zero"}
	}

	e, s, err := t.appendEntry(ctx, studentID, deltaMinutes, note, false)
	if err != nil {
		return nil, err
	}

	t.plugins.EmitEntryAdded(ctx, e, s)
	t.logger.Debug("entry added",
		"student_id", studentID.String(),
		"delta_minutes", deltaMinutes,
		"total_minutes", s.TotalMinutes,
	)

	return e, nil
}

// MarkServed45 records that the student served one 45-minute block.
// The entry carries Served45 from the moment it is written.
func (t *Tracker) MarkServed45(ctx context.Context, studentID id.StudentID) (*entry.Entry, error) {
	e, s, err := t.appendEntry(ctx, studentID, -types.BlockMinutes, ServedNote, true)
	if err != nil {
		return nil, err
	}

	t.plugins.EmitServed(ctx, e, s)
	t.logger.Info("detention served",
		"student_id", studentID.String(),
		"total_minutes", s.TotalMinutes,
	)

	return e, nil
}

func (t *Tracker) appendEntry(ctx context.Context, studentID id.StudentID, delta int64, note string, served bool) (*entry.Entry, *student.Student, error) {
	if studentID.IsNil() {
		return nil, nil, ValidationError{Field: "student_id", Message: "student id is required"}
	}

	ts := t.now()
	e := &entry.Entry{
		ID:           id.NewEntryID(),
		StudentID:    studentID,
		Timestamp:    ts,
		Seq:          t.seq.next(ts),
		DeltaMinutes: delta,
		Note:         strings.TrimSpace(note),
		Served45:     served,
	}

	s, err := t.store.AppendEntry(ctx, e)
	if err != nil {
		return nil, nil, t.wrap("append entry", err)
	}
	return e, s, nil
}

// UndoLastEntry removes the student's most recent entry and reverses its
// effect on the total. It returns (nil, nil) when there is nothing to
// undo.
func (t *Tracker) UndoLastEntry(ctx context.Context, studentID id.StudentID) (*entry.Entry, error) {
	if studentID.IsNil() {
		return nil, ValidationError{Field: "student_id", Message: "student id is required"}
	}

	e, s, err := t.store.RemoveLatestEntry(ctx, studentID, t.now())
	if errors.Is(err, ErrNoEntries) {
		return nil, nil //nolint:nilnil // nothing to undo is not an error
	}
	if err != nil {
		return nil, t.wrap("remove latest entry", err)
	}

	t.plugins.EmitEntryUndone(ctx, e, s)
	t.logger.Debug("entry undone",
		"student_id", studentID.String(),
		"delta_minutes", e.DeltaMinutes,
		"total_minutes", s.TotalMinutes,
	)

	return e, nil
}

// LatestEntry returns the entry UndoLastEntry would remove next. It
// returns ErrEntryNotFound when the student has no entries.
func (t *Tracker) LatestEntry(ctx context.Context, studentID id.StudentID) (*entry.Entry, error) {
	if studentID.IsNil() {
		return nil, ValidationError{Field: "student_id", Message: "student id is required"}
	}
	if _, err := t.store.GetStudent(ctx, studentID); err != nil {
		return nil, t.wrap("get student", err)
	}

	e, err := t.store.LatestEntry(ctx, studentID)
	if errors.Is(err, ErrNoEntries) {
		return nil, ErrEntryNotFound
	}
	return e, t.wrap("latest entry", err)
}

// GetStudentEntries returns the student's history, newest first.
func (t *Tracker) GetStudentEntries(ctx context.Context, studentID id.StudentID) ([]*entry.Entry, error) {
	return t.ListEntries(ctx, studentID, entry.ListOpts{})
}

// ListEntries returns a page of the student's history, newest first.
func (t *Tracker) ListEntries(ctx context.Context, studentID id.StudentID, opts entry.ListOpts) ([]*entry.Entry, error) {
	if studentID.IsNil() {
		return nil, ValidationError{Field: "student_id", Message: "student id is required"}
	}
	entries, err := t.store.ListEntries(ctx, studentID, opts)
	return entries, t.wrap("list entries", err)
}

// ──────────────────────────────────────────────────
// Derived views and repair
// ──────────────────────────────────────────────────

// Standing returns the student's total with its owed/progress breakdown.
func (t *Tracker) Standing(ctx context.Context, studentID id.StudentID) (types.Standing, error) {
	s, err := t.GetStudent(ctx, studentID)
	if err != nil {
		return types.Standing{}, err
	}
	return s.Standing(), nil
}

// Reconcile recomputes the student's total from their entries and
// repairs the cached value. It returns the drift that was corrected.
func (t *Tracker) Reconcile(ctx context.Context, studentID id.StudentID) (int64, error) {
	if studentID.IsNil() {
		return 0, ValidationError{Field: "student_id", Message: "student id is required"}
	}

	before, after, err := t.store.ReconcileTotal(ctx, studentID, t.now())
	if err != nil {
		return 0, t.wrap("reconcile total", err)
	}

	drift := after - before
	if drift != 0 {
		t.plugins.EmitTotalReconciled(ctx, studentID, before, after)
		t.logger.Warn("student total drift repaired",
			"student_id", studentID.String(),
			"cached", before,
			"recomputed", after,
		)
	}

	return drift, nil
}

// ReconcileClass reconciles every student in the class and returns the
// students whose totals were repaired, keyed by ID.
func (t *Tracker) ReconcileClass(ctx context.Context, classID id.ClassID) (map[id.StudentID]int64, error) {
	students, err := t.GetStudentsByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	repaired := make(map[id.StudentID]int64)
	var errs MultiError
	for _, s := range students {
		drift, err := t.Reconcile(ctx, s.ID)
		if err != nil {
			errs.Add(err)
			continue
		}
		if drift != 0 {
			repaired[s.ID] = drift
		}
	}
	return repaired, errs.ErrOrNil()
}

// now returns the clock time truncated to storage precision.
func (t *Tracker) now() time.Time {
	return t.clock.Now().UTC().Truncate(time.Millisecond)
}

// wrap passes nil and sentinel errors through and wraps anything else in
// a StoreError.
func (t *Tracker) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) ||
		errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrStoreClosed) ||
		errors.Is(err, ErrNoEntries) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	t.logger.Error("store operation failed", "op", op, "error", err)
	return &StoreError{Op: op, Err: err}
}
