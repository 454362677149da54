package senda

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sendahq/senda/internal/runtime"
	"github.com/sendahq/senda/pkg/actions"
	"github.com/sendahq/senda/pkg/adapters/memory"
	"github.com/sendahq/senda/pkg/catalog"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/resume"
	"github.com/sendahq/senda/pkg/state"
)

// Engine is the high-level entry point for the Senda library.
// It wraps the internal runtime and provides a simplified API for consumers:
// a definition catalog, an instance state store, an action registry, and the
// resumption policy, assembled behind one facade.
type Engine struct {
	catalog *catalog.Catalog
	store   state.Store
	actions *actions.Registry
	tracker resume.Tracker
	resume  *resume.Manager
	runtime *runtime.Engine
	window  time.Duration
	hooks   flow.Hooks
	logger  *slog.Logger
	Name    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a custom state store, bypassing the default in-memory one.
func WithStore(s state.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithTracker injects a custom resumption tracker.
func WithTracker(tr resume.Tracker) Option {
	return func(e *Engine) {
		e.tracker = tr
	}
}

// WithResumeWindow overrides the trailing window within which a prior start
// is resumed instead of recreated. The default is resume.DefaultWindow.
func WithResumeWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.window = d
	}
}

// WithActions injects a pre-populated action registry. Useful when handlers
// are bound by an adapter before the engine exists.
func WithActions(reg *actions.Registry) Option {
	return func(e *Engine) {
		e.actions = reg
	}
}

// WithHooks registers observability hooks.
func WithHooks(h flow.Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName labels the engine in log output.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a Senda Engine.
// By default it runs entirely in memory: an in-process state store, an empty
// action registry, and an in-memory resumption tracker. Production embedders
// swap the persistence pieces with WithStore and WithTracker.
func New(opts ...Option) *Engine {
	eng := &Engine{
		catalog: catalog.New(),
		window:  resume.DefaultWindow,
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.actions == nil {
		eng.actions = actions.NewRegistry()
	}
	if eng.tracker == nil {
		eng.tracker = resume.NewMemoryTracker()
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which
	// would overwrite its default).
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("engine", eng.Name)
	}

	eng.resume = resume.NewManager(eng.tracker, resume.WithWindow(eng.window))
	eng.runtime = runtime.NewEngine(
		eng.catalog,
		eng.store,
		eng.actions,
		runtime.WithHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	)

	return eng
}

// Register validates def and publishes it under its id, atomically replacing
// any prior definition with the same id. In-flight instances pick up the new
// definition on their next advance.
func (e *Engine) Register(def *flow.Definition) error {
	return e.catalog.Register(def)
}

// Definition returns the registered definition for id, or flow.ErrUnknownFlow.
func (e *Engine) Definition(id string) (*flow.Definition, error) {
	return e.catalog.Get(id)
}

// Definitions returns the sorted ids of all registered definitions.
func (e *Engine) Definitions() []string {
	return e.catalog.IDs()
}

// RegisterAction binds a handler to an action name. Later registrations
// under the same name replace earlier ones.
func (e *Engine) RegisterAction(name string, h actions.Handler) {
	e.actions.Register(name, h)
}

// Actions returns the sorted names of the registered action handlers.
func (e *Engine) Actions() []string {
	return e.actions.Names()
}

// Advance moves the instance identified by flowID along at most one edge.
// A non-empty choice selects among guarded transitions; an empty choice
// takes the unconditional one. It reports whether a transition was taken;
// sitting on a node with no matching transition is not an error.
func (e *Engine) Advance(ctx context.Context, flowID, choice string) (bool, error) {
	return e.runtime.Advance(ctx, flowID, choice)
}

// View returns the rendering contract for the instance's current node.
func (e *Engine) View(ctx context.Context, flowID string) (*flow.View, error) {
	return e.runtime.View(ctx, flowID)
}

// Variable reads one instance variable. A missing key reports ok=false with
// no error.
func (e *Engine) Variable(ctx context.Context, flowID, key string) (string, bool, error) {
	return e.store.Variable(ctx, flowID, key)
}

// SetVariable writes one instance variable. Keys are case-insensitive.
func (e *Engine) SetVariable(ctx context.Context, flowID, key, value string) error {
	return e.store.SetVariable(ctx, flowID, key, value)
}

// Variables returns a snapshot of the instance's variable bag.
func (e *Engine) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	return e.store.Variables(ctx, flowID)
}

// Start publishes a fresh, uniquely-named instance of the definition
// registered under templateID and returns its workflow id. Each call yields
// an independent instance; the template itself is left untouched.
func (e *Engine) Start(ctx context.Context, templateID string) (string, error) {
	tmpl, err := e.catalog.Get(templateID)
	if err != nil {
		return "", err
	}

	id := templateID + "-" + uuid.NewString()
	def := tmpl.Clone()
	def.ID = id
	if err := e.catalog.Register(def); err != nil {
		return "", err
	}
	if _, err := e.resume.Claim(ctx, id); err != nil {
		return "", err
	}

	e.logger.Debug("instance started", "flow", id, "template", templateID)
	return id, nil
}

// StartAt resolves the workflow id derived from an external context
// signature and decides between resuming and starting fresh. Within the
// resumption window of the prior start the existing instance is resumed
// as-is; outside it (or on first contact) any stale instance state is
// dropped and a fresh copy of template is published under the same id.
// It returns the derived id and whether an existing instance was resumed.
func (e *Engine) StartAt(ctx context.Context, domain, signature string, template *flow.Definition) (string, bool, error) {
	if template == nil {
		return "", false, fmt.Errorf("%w: nil template", flow.ErrInvalidInput)
	}

	id := resume.Key(domain, signature)
	resumed, err := e.resume.Claim(ctx, id)
	if err != nil {
		return "", false, err
	}

	if !resumed {
		if err := e.store.Remove(ctx, id); err != nil {
			return "", false, err
		}
		if err := e.registerCopy(template, id); err != nil {
			return "", false, err
		}
		e.logger.Debug("fresh start", "flow", id, "domain", domain)
		return id, false, nil
	}

	// Resumed within the window. The definition may still be absent in this
	// process (restart, second replica): publish a copy without touching the
	// persisted instance state.
	if !e.catalog.Exists(id) {
		if err := e.registerCopy(template, id); err != nil {
			return "", false, err
		}
	}
	e.logger.Debug("resumed", "flow", id, "domain", domain)
	return id, true, nil
}

func (e *Engine) registerCopy(template *flow.Definition, id string) error {
	def := template.Clone()
	def.ID = id
	return e.catalog.Register(def)
}

// Remove drops everything known about flowID: its instance state, its
// registered definition, and its resumption record. Removing an unknown id
// is a no-op.
func (e *Engine) Remove(ctx context.Context, flowID string) error {
	if err := e.store.Remove(ctx, flowID); err != nil {
		return err
	}
	e.catalog.Remove(flowID)
	return e.resume.Forget(ctx, flowID)
}

// Sweep removes every instance whose start fell out of the resumption
// window and returns how many were dropped. Intended to run periodically.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.resume.Stale(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, id := range ids {
		if err := e.Remove(ctx, id); err != nil {
			e.logger.Warn("sweep: remove failed", "flow", id, "error", err)
			continue
		}
		swept++
	}
	if swept > 0 {
		e.logger.Info("sweep complete", "removed", swept)
	}
	return swept, nil
}

// Window returns the configured resumption window.
func (e *Engine) Window() time.Duration {
	return e.resume.Window()
}

// Store returns the underlying state store used by the engine.
func (e *Engine) Store() state.Store {
	return e.store
}
