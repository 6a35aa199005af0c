package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches hooks to them.
// Hook implementations are cached per type at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onClassCreated     []OnClassCreated
	onStudentCreated   []OnStudentCreated
	onStudentsImported []OnStudentsImported
	onEntryAdded       []OnEntryAdded
	onServed           []OnServed
	onEntryUndone      []OnEntryUndone
	onTotalReconciled  []OnTotalReconciled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			r.logger.Warn("plugin already registered", "name", p.Name())
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnClassCreated); ok {
		r.onClassCreated = append(r.onClassCreated, v)
		hooks = append(hooks, "OnClassCreated")
	}
	if v, ok := p.(OnStudentCreated); ok {
		r.onStudentCreated = append(r.onStudentCreated, v)
		hooks = append(hooks, "OnStudentCreated")
	}
	if v, ok := p.(OnStudentsImported); ok {
		r.onStudentsImported = append(r.onStudentsImported, v)
		hooks = append(hooks, "OnStudentsImported")
	}
	if v, ok := p.(OnEntryAdded); ok {
		r.onEntryAdded = append(r.onEntryAdded, v)
		hooks = append(hooks, "OnEntryAdded")
	}
	if v, ok := p.(OnServed); ok {
		r.onServed = append(r.onServed, v)
		hooks = append(hooks, "OnServed")
	}
	if v, ok := p.(OnEntryUndone); ok {
		r.onEntryUndone = append(r.onEntryUndone, v)
		hooks = append(hooks, "OnEntryUndone")
	}
	if v, ok := p.(OnTotalReconciled); ok {
		r.onTotalReconciled = append(r.onTotalReconciled, v)
		hooks = append(hooks, "OnTotalReconciled")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a registered plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, tracker any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, tracker)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitClassCreated emits a class created event.
func (r *Registry) EmitClassCreated(ctx context.Context, c *class.Class) {
	r.mu.RLock()
	plugins := r.onClassCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClassCreated", func() error {
			return p.OnClassCreated(ctx, c)
		})
	}
}

// EmitStudentCreated emits a student created event.
func (r *Registry) EmitStudentCreated(ctx context.Context, s *student.Student) {
	r.mu.RLock()
	plugins := r.onStudentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStudentCreated", func() error {
			return p.OnStudentCreated(ctx, s)
		})
	}
}

// EmitStudentsImported emits a bulk import event.
func (r *Registry) EmitStudentsImported(ctx context.Context, classID id.ClassID, students []*student.Student, removed int64) {
	r.mu.RLock()
	plugins := r.onStudentsImported
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStudentsImported", func() error {
			return p.OnStudentsImported(ctx, classID, students, removed)
		})
	}
}

// EmitEntryAdded emits an entry added event.
func (r *Registry) EmitEntryAdded(ctx context.Context, e *entry.Entry, s *student.Student) {
	r.mu.RLock()
	plugins := r.onEntryAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnEntryAdded", func() error {
			return p.OnEntryAdded(ctx, e, s)
		})
	}
}

// EmitServed emits a served event.
func (r *Registry) EmitServed(ctx context.Context, e *entry.Entry, s *student.Student) {
	r.mu.RLock()
	plugins := r.onServed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnServed", func() error {
			return p.OnServed(ctx, e, s)
		})
	}
}

// EmitEntryUndone emits an entry undone event.
func (r *Registry) EmitEntryUndone(ctx context.Context, e *entry.Entry, s *student.Student) {
	r.mu.RLock()
	plugins := r.onEntryUndone
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnEntryUndone", func() error {
			return p.OnEntryUndone(ctx, e, s)
		})
	}
}

// EmitTotalReconciled emits a total reconciled event.
func (r *Registry) EmitTotalReconciled(ctx context.Context, studentID id.StudentID, before, after int64) {
	r.mu.RLock()
	plugins := r.onTotalReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTotalReconciled", func() error {
			return p.OnTotalReconciled(ctx, studentID, before, after)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
