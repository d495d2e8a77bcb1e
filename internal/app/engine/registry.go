package engine

import (
	"context"
	"sort"
	"sync"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// Creator builds an engine from the shared dependencies
type Creator func(deps Deps) (Engine, error)

var (
	registry      = make(map[model.EngineKind]Creator)
	registryMutex sync.RWMutex
)

// Register registers an engine creator; variants call it from init()
func Register(kind model.EngineKind, creator Creator) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[kind] = creator
}

// Lookup returns the creator for an engine kind
func Lookup(kind model.EngineKind) (Creator, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	creator, ok := registry[kind]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownEngine, "engine %s not registered", kind)
	}
	return creator, nil
}

// Kinds returns the registered engine kinds
func Kinds() []model.EngineKind {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	kinds := make([]model.EngineKind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Set holds the engines selected at startup, keyed by kind
type Set struct {
	engines map[model.EngineKind]Engine
}

// NewSet collects engines into a set
func NewSet(engines ...Engine) *Set {
	s := &Set{engines: make(map[model.EngineKind]Engine, len(engines))}
	for _, e := range engines {
		s.engines[e.Kind()] = e
	}
	return s
}

// Build creates every registered engine, or only the listed kinds when given
func Build(deps Deps, kinds ...model.EngineKind) (*Set, error) {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	s := NewSet()
	for _, kind := range kinds {
		creator, err := Lookup(kind)
		if err != nil {
			return nil, err
		}
		e, err := creator(deps)
		if err != nil {
			return nil, errors.Wrapf(err, "create engine %s", kind)
		}
		s.engines[kind] = e
	}
	return s, nil
}

// Get returns the engine for kind
func (s *Set) Get(kind model.EngineKind) (Engine, error) {
	e, ok := s.engines[kind]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownEngine, "engine %s", kind)
	}
	return e, nil
}

// Kinds returns the engines in the set
func (s *Set) Kinds() []model.EngineKind {
	kinds := make([]model.EngineKind, 0, len(s.engines))
	for kind := range s.engines {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Load implements lifecycle.Loader by delegating to the key's engine
func (s *Set) Load(ctx context.Context, key model.ModelKey) (Model, error) {
	e, err := s.Get(key.Engine)
	if err != nil {
		return nil, err
	}
	return e.Load(ctx, key)
}
