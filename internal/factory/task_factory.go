package factory

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/model"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	log "github.com/sirupsen/logrus"
)

// Batch is everything a writer receives for one analyzed capture or table.
type Batch struct {
	Name      string    // capture or table name, without extension
	Timestamp time.Time // when the analysis ran
	Raw       *dataset.Table
	Validated *dataset.Table
	Summary   model.Summary
}

// ErrInvalidName is returned for batch names that cannot be used as a file
// name component or a mail header value.
var ErrInvalidName = errors.New("invalid batch name")

// CheckName rejects names that are empty, contain path separators or
// control characters, or are made only of dots.
func CheckName(name string) error {
	if strings.Trim(name, ".") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Writer persists or publishes validated flow tables.
type Writer interface {
	Type() string
	Write(ctx context.Context, batch *Batch) error
	Close() error
}

// WriterFactory builds a writer from its configuration.
type WriterFactory func(def config.WriterDef) (Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered lists the registered writer types.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds every enabled writer in the config. On failure, writers
// created so far are closed.
func Create(cfg *config.Config) ([]Writer, error) {
	var writers []Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		log.Printf("Creating writer of type: '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		w, err := factory(def)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, w)
	}

	return writers, nil
}

func closeAll(writers []Writer) {
	for _, w := range writers {
		if err := w.Close(); err != nil {
			log.Warnf("Failed to close %s writer: %v", w.Type(), err)
		}
	}
}
