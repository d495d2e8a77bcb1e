package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// Config bounds how many models stay loaded and for how long
type Config struct {
	// IdleTimeout unloads unreferenced models unused for this long. Non-positive disables eviction.
	IdleTimeout time.Duration
	// MaxLoadedModels caps Ready plus Loading models. Zero means unlimited.
	MaxLoadedModels int
	// LoadTimeout bounds a single load. Zero means no limit.
	LoadTimeout time.Duration
	// SweepInterval overrides the IdleTimeout/2 sweep period
	SweepInterval time.Duration
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source, mainly for tests
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

type entry struct {
	key      model.ModelKey
	state    State
	handle   *Handle
	refs     int
	lastUsed time.Time
	err      error

	done     chan struct{} // closed when loading finishes
	unloaded chan struct{} // closed when the entry leaves the map after Unloading
}

// Manager owns at most one loaded model per key. All entry metadata is guarded by mu;
// loading, freeing and inference happen outside it.
type Manager struct {
	loader  Loader
	cfg     Config
	clock   clock.Clock
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	entries map[model.ModelKey]*entry
	closed  bool
	changed chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Manager that loads models through loader
func New(loader Loader, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		loader:  loader,
		cfg:     cfg,
		clock:   clock.New(),
		logger:  zap.NewNop(),
		entries: make(map[model.ModelKey]*entry),
		changed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the manager's limits
func (m *Manager) Config() Config { return m.cfg }

// Acquire returns a Ready handle for key, loading the model first if needed.
// Callers for a key that is already loading wait for that load instead of starting another.
// Every successful Acquire must be paired with Release.
func (m *Manager) Acquire(ctx context.Context, key model.ModelKey) (*Handle, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, errors.ErrClosed
		}

		e, ok := m.entries[key]
		if !ok {
			e, victim, err := m.startLoadLocked(key)
			m.mu.Unlock()
			if err != nil {
				return nil, err
			}
			go m.load(ctx, e, victim)
			return m.awaitLoad(ctx, e)
		}

		switch e.state {
		case StateReady:
			e.refs++
			m.metrics.setRefs(key, e.refs)
			h := e.handle
			m.mu.Unlock()
			return h, nil

		case StateLoading:
			e.refs++
			m.mu.Unlock()
			return m.awaitLoad(ctx, e)

		default:
			// Unloading: wait for the free to finish, then load afresh
			unloaded := e.unloaded
			m.mu.Unlock()
			select {
			case <-unloaded:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

// startLoadLocked inserts a Loading entry holding one reference for the caller.
// When at capacity it marks the least recently used idle model for eviction.
func (m *Manager) startLoadLocked(key model.ModelKey) (*entry, *entry, error) {
	var victim *entry
	if limit := m.cfg.MaxLoadedModels; limit > 0 && m.activeLocked() >= limit {
		victim = m.victimLocked()
		if victim == nil {
			return nil, nil, &errors.CapacityError{Key: key, Limit: limit}
		}
		victim.state = StateUnloading
	}

	e := &entry{
		key:      key,
		state:    StateLoading,
		refs:     1,
		done:     make(chan struct{}),
		unloaded: make(chan struct{}),
	}
	m.entries[key] = e
	return e, victim, nil
}

func (m *Manager) activeLocked() int {
	n := 0
	for _, e := range m.entries {
		if e.state == StateReady || e.state == StateLoading {
			n++
		}
	}
	return n
}

// victimLocked picks the least recently used Ready entry with no holders
func (m *Manager) victimLocked() *entry {
	var victim *entry
	for _, e := range m.entries {
		if e.state != StateReady || e.refs > 0 {
			continue
		}
		if victim == nil ||
			e.lastUsed.Before(victim.lastUsed) ||
			(e.lastUsed.Equal(victim.lastUsed) && e.handle.loadedAt.Before(victim.handle.loadedAt)) {
			victim = e
		}
	}
	return victim
}

// awaitLoad blocks until e finishes loading. A caller that gives up returns its
// reservation without affecting the load itself.
func (m *Manager) awaitLoad(ctx context.Context, e *entry) (*Handle, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		m.abandon(e)
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	m.metrics.setRefs(e.key, e.refs)
	return e.handle, nil
}

func (m *Manager) abandon(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.state == StateUnloaded || e.refs == 0 {
		return
	}
	e.refs--
	if e.state == StateReady {
		m.metrics.setRefs(e.key, e.refs)
	}
	if e.refs == 0 {
		m.notifyLocked()
	}
}

func (m *Manager) load(parent context.Context, e *entry, victim *entry) {
	if victim != nil {
		m.logger.Info("evicting model to make room",
			zap.Stringer("model", victim.key), zap.Stringer("for", e.key))
		m.free(victim, ReasonCapacity)
	}

	ctx := context.WithoutCancel(parent)
	if m.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.LoadTimeout)
		defer cancel()
	}

	m.logger.Info("loading model", zap.Stringer("model", e.key))
	start := m.clock.Now()
	mdl, err := m.safeLoad(ctx, e.key)
	now := m.clock.Now()
	m.metrics.observeLoad(e.key, now.Sub(start), err)

	m.mu.Lock()
	if err != nil {
		e.err = &errors.LoadError{Key: e.key, Err: err}
		e.state = StateUnloaded
		e.refs = 0
		if m.entries[e.key] == e {
			delete(m.entries, e.key)
		}
		close(e.unloaded)
		m.logger.Error("model load failed", zap.Stringer("model", e.key), zap.Error(err))
	} else {
		e.handle = newHandle(e.key, mdl, now)
		e.state = StateReady
		e.lastUsed = now
		m.metrics.setRefs(e.key, e.refs)
		m.logger.Info("model ready",
			zap.Stringer("model", e.key),
			zap.String("handle", e.handle.id),
			zap.Duration("took", now.Sub(start)))
	}
	close(e.done)
	m.notifyLocked()
	m.mu.Unlock()
}

func (m *Manager) safeLoad(ctx context.Context, key model.ModelKey) (mdl Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			mdl = nil
			err = errors.Newf("loader panicked: %v", r)
		}
	}()
	mdl, err = m.loader.Load(ctx, key)
	if err == nil && mdl == nil {
		err = errors.New("loader returned no model")
	}
	return mdl, err
}

// free closes a model already marked Unloading and removes its entry
func (m *Manager) free(e *entry, reason string) {
	h := e.handle
	if err := h.model.Close(); err != nil {
		m.logger.Warn("closing model", zap.Stringer("model", e.key), zap.Error(err))
	}
	h.freed.Store(true)
	m.metrics.observeEviction(e.key, reason)

	m.mu.Lock()
	if m.entries[e.key] == e {
		delete(m.entries, e.key)
	}
	e.state = StateUnloaded
	close(e.unloaded)
	m.notifyLocked()
	m.mu.Unlock()

	m.logger.Info("model unloaded",
		zap.Stringer("model", e.key),
		zap.String("handle", h.id),
		zap.String("reason", reason))
}

// notifyLocked wakes everything waiting for entry changes
func (m *Manager) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// Release gives back a handle obtained from Acquire. It never blocks.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h.key]
	if !ok || e.handle != h || e.refs == 0 {
		m.logger.Warn("release of unknown handle", zap.Stringer("model", h.key), zap.String("handle", h.id))
		return
	}
	e.refs--
	m.metrics.setRefs(e.key, e.refs)
	if e.refs == 0 {
		m.notifyLocked()
	}
}

// Touch records a successful use of h, restarting its idle clock
func (m *Manager) Touch(h *Handle) {
	if h == nil {
		return
	}
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[h.key]; ok && e.handle == h && e.state == StateReady {
		e.lastUsed = now
	}
}

// Unload frees the model for key immediately. It fails with ErrNotLoaded when
// no Ready model exists and with ErrInUse while requests hold or await it.
func (m *Manager) Unload(key model.ModelKey) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	switch {
	case !ok || e.state == StateUnloading:
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrNotLoaded, "%s", key)
	case e.state == StateLoading || e.refs > 0:
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrInUse, "%s", key)
	}
	e.state = StateUnloading
	m.mu.Unlock()

	m.free(e, ReasonManual)
	return nil
}

// Status reports every known key, sorted by key
func (m *Manager) Status() []ModelStatus {
	m.mu.Lock()
	out := make([]ModelStatus, 0, len(m.entries))
	for _, e := range m.entries {
		st := ModelStatus{Key: e.key, State: e.state, Refs: e.refs, LastUsed: e.lastUsed}
		if e.handle != nil {
			st.HandleID = e.handle.id
			st.LoadedAt = e.handle.loadedAt
		}
		out = append(out, st)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Shutdown rejects new acquisitions, stops the sweep loop and unloads every model
// once its holders have released it. It returns ctx.Err() if ctx ends first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stopOnce.Do(func() { close(m.stop) })

	for {
		m.mu.Lock()
		var victims []*entry
		pending := 0
		for _, e := range m.entries {
			if e.state == StateReady && e.refs == 0 {
				e.state = StateUnloading
				victims = append(victims, e)
				continue
			}
			pending++
		}
		changed := m.changed
		m.mu.Unlock()

		for _, e := range victims {
			m.free(e, ReasonShutdown)
		}
		if len(victims) > 0 {
			continue
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
