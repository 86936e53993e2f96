package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jward/refscope/internal/search"
)

var (
	// ErrEmptyDBPath indicates a missing index database path
	ErrEmptyDBPath = errors.New("empty database path")

	// ErrInvalidGlob indicates an include or exclude pattern that does not compile
	ErrInvalidGlob = errors.New("invalid glob pattern")

	// ErrInvalidWorkers indicates a non-positive search worker count
	ErrInvalidWorkers = errors.New("invalid search workers")

	// ErrInvalidCacheSize indicates a non-positive parse cache size
	ErrInvalidCacheSize = errors.New("invalid parse cache size")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Index.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: index.db_path is required", ErrEmptyDBPath))
	}
	for _, p := range append(append([]string{}, cfg.Index.Include...), cfg.Index.Exclude...) {
		if _, err := search.CompileGlob(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidGlob, p))
		}
	}
	if cfg.Search.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: search.workers must be positive, got %d", ErrInvalidWorkers, cfg.Search.Workers))
	}
	if cfg.Cache.ParseEntries <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache.parse_entries must be positive, got %d", ErrInvalidCacheSize, cfg.Cache.ParseEntries))
	}

	return joinErrors(errs)
}

// joinErrors combines errors into one with a readable list. The result
// still matches each sentinel with errors.Is.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return &validationError{errs: errs, msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - ")}
}

type validationError struct {
	errs []error
	msg  string
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
