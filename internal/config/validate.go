package config

import (
	"errors"
	"fmt"

	"github.com/cronside/cronside/internal/core"
)

// Validate checks the structural validity of a Config. It verifies the
// version field, ensures modules are present, and checks that all
// referenced module IDs exist in the registry. At most one store backend
// may be configured since both implement the same contract.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	stores := 0
	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
			continue
		}
		if core.ModuleID(id).Namespace() == "store" {
			stores++
		}
	}
	if stores > 1 {
		errs = append(errs, errors.New("config: at most one store backend may be configured"))
	}

	return errors.Join(errs...)
}
