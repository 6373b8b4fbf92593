// Package model provides the estimator interfaces and shared state handling
// used by scistat models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/scistat/pkg/errors"
)

// StateManager records whether a model has been fitted and the shape it was
// fitted on. Safe for concurrent use.
type StateManager struct {
	mu    sync.RWMutex
	shape *fitShape
}

// fitShape is nil on an unfitted model.
type fitShape struct {
	features, samples int
}

func NewStateManager() *StateManager {
	return &StateManager{}
}

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shape != nil
}

// SetFitted marks the model fitted on nSamples rows of nFeatures columns.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	s.shape = &fitShape{features: nFeatures, samples: nSamples}
	s.mu.Unlock()
}

// Reset forgets the fit. Estimators call it before refitting so a failed
// Fit leaves the model unfitted.
func (s *StateManager) Reset() {
	s.mu.Lock()
	s.shape = nil
	s.mu.Unlock()
}

// GetDimensions returns the fitted shape, or zeros before Fit.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shape == nil {
		return 0, 0
	}
	return s.shape.features, s.shape.samples
}

// RequireFitted returns a NotFittedError naming modelName and method when
// the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures returns a DimensionError when nFeatures differs from the
// width seen during fitting.
func (s *StateManager) RequireFeatures(op string, nFeatures int) error {
	want, _ := s.GetDimensions()
	if nFeatures != want {
		return errors.NewDimensionError(op, want, nFeatures, 1)
	}
	return nil
}
