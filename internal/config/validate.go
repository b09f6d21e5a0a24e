package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCacheRoot indicates a cache root that resolved to empty.
	ErrEmptyCacheRoot = errors.New("empty cache root")

	// ErrInvalidJupyterTimeout indicates a non-positive Jupyter timeout.
	ErrInvalidJupyterTimeout = errors.New("invalid jupyter timeout")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}
	if err := validateExec(&cfg.Exec); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateCache(cfg *CacheConfig) error {
	if strings.TrimSpace(cfg.Root) == "" {
		return fmt.Errorf("%w: cache root is required", ErrEmptyCacheRoot)
	}
	return nil
}

func validateExec(cfg *ExecConfig) error {
	if cfg.JupyterTimeout <= 0 {
		return fmt.Errorf("%w: jupyter_timeout must be positive, got %d", ErrInvalidJupyterTimeout, cfg.JupyterTimeout)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
