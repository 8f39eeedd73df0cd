package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ifabos/go-idlc/typesys"
)

// ManifestSuffix is appended to the module name to form the manifest file name
const ManifestSuffix = ".module.yaml"

// ErrNotBegun is returned when a module is saved before BeginModule
var ErrNotBegun = errors.New("module not begun")

// Writer is the contract of a compiler session's module writer
type Writer interface {
	BeginModule(name, outputLocation string) error
	SaveModule(m *typesys.Module) error
}

// Store writes the manifest of a module into the output location
type Store struct {
	logger *slog.Logger
	name   string
	path   string
}

// NewStore creates a manifest store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// BeginModule prepares the output location
func (s *Store) BeginModule(name, outputLocation string) error {
	if outputLocation == "" {
		outputLocation = "."
	}
	if err := os.MkdirAll(outputLocation, 0755); err != nil {
		return err
	}
	s.name = name
	s.path = filepath.Join(outputLocation, name+ManifestSuffix)
	return nil
}

// SaveModule writes the manifest of m
func (s *Store) SaveModule(m *typesys.Module) error {
	if s.path == "" {
		return ErrNotBegun
	}
	if m.Name != s.name {
		return fmt.Errorf("module %s saved into the store of %s", m.Name, s.name)
	}
	data, err := yaml.Marshal(Encode(m))
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return err
	}
	s.logger.Info("manifest written", "path", s.path, "id", m.ID, "types", m.Len())
	return nil
}

// Path returns the manifest path chosen by BeginModule
func (s *Store) Path() string {
	return s.path
}

// Chain forwards to several writers in order
type Chain []Writer

// BeginModule begins the module in every writer
func (c Chain) BeginModule(name, outputLocation string) error {
	for _, w := range c {
		if err := w.BeginModule(name, outputLocation); err != nil {
			return err
		}
	}
	return nil
}

// SaveModule saves the module with every writer, stopping at the first failure
func (c Chain) SaveModule(m *typesys.Module) error {
	for _, w := range c {
		if err := w.SaveModule(m); err != nil {
			return err
		}
	}
	return nil
}
