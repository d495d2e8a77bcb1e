package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"whisper-asr-webservice/internal/app/model"
)

// Model is a loaded in-memory model instance owned by the manager
type Model interface {
	// Close frees the model's memory and device resources
	Close() error
}

// Loader loads the model identified by key
type Loader interface {
	Load(ctx context.Context, key model.ModelKey) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, key model.ModelKey) (Model, error)

// Load calls f(ctx, key)
func (f LoaderFunc) Load(ctx context.Context, key model.ModelKey) (Model, error) {
	return f(ctx, key)
}

// State is the lifecycle state of one model key
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnloading:
		return "unloading"
	default:
		return "unloaded"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Handle is a Ready model shared by every request that acquired it.
// Holders must give it back with Manager.Release.
type Handle struct {
	id       string
	key      model.ModelKey
	model    Model
	loadedAt time.Time
	freed    atomic.Bool
}

func newHandle(key model.ModelKey, m Model, loadedAt time.Time) *Handle {
	return &Handle{
		id:       uuid.New().String(),
		key:      key,
		model:    m,
		loadedAt: loadedAt,
	}
}

// ID uniquely identifies this load of the model
func (h *Handle) ID() string { return h.id }

// Key returns the model key the handle is bound to
func (h *Handle) Key() model.ModelKey { return h.key }

// Model returns the loaded model instance
func (h *Handle) Model() Model { return h.model }

// LoadedAt returns when loading completed
func (h *Handle) LoadedAt() time.Time { return h.loadedAt }

// Freed reports whether the underlying model has been closed
func (h *Handle) Freed() bool { return h.freed.Load() }

// ModelStatus is a point-in-time view of one key
type ModelStatus struct {
	Key      model.ModelKey `json:"key"`
	State    State          `json:"state"`
	Refs     int            `json:"refs"`
	HandleID string         `json:"handle_id,omitempty"`
	LoadedAt time.Time      `json:"loaded_at,omitempty"`
	LastUsed time.Time      `json:"last_used_at,omitempty"`
}
