// Package job defines the declarative job documents and the two
// precedence-ordered definition sets (local overrides shared).
package job

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for job definition handling.
var (
	ErrNotFound    = errors.New("job: not found")
	ErrExists      = errors.New("job: already exists")
	ErrInvalid     = errors.New("job: invalid definition")
	ErrInvalidName = errors.New("job: invalid name")
)

// nameRE restricts job names to lowercase alphanumerics and hyphens.
var nameRE = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Definition is one declarative job document. Boolean fields default to
// true and are stored as pointers so that defaulted values are omitted
// from the YAML document entirely (a paused-then-resumed job round-trips
// to its original form).
type Definition struct {
	// Name uniquely identifies the job across both definition sets.
	Name string `yaml:"name" json:"name"`

	// Prompt is the command payload executed by the runner.
	Prompt string `yaml:"prompt" json:"prompt"`

	// Schedule is an optional 5-field cron expression. Absent means the
	// job is manual/trigger-only.
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`

	// Retries is the number of retry attempts after the first failed
	// attempt.
	Retries int `yaml:"retries,omitempty" json:"retries,omitempty"`

	// Timeout bounds each individual attempt, in seconds. Zero means
	// unbounded.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Notify controls completion notifications. Nil means true.
	Notify *bool `yaml:"notify,omitempty" json:"notify,omitempty"`

	// Workdir is the working directory for the spawned command. Empty
	// means the runner default.
	Workdir string `yaml:"workdir,omitempty" json:"workdir,omitempty"`

	// Enabled controls whether the compiled schedule is installed. Nil
	// means true. Manual triggers run regardless.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Env maps environment variable names to lookup keys resolved against
	// the global config env table at run time.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// IsEnabled reports whether the job's schedule should be installed.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// ShouldNotify reports whether a completion notification is wanted.
func (d Definition) ShouldNotify() bool {
	return d.Notify == nil || *d.Notify
}

// ValidateName checks the job name against the allowed pattern.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q (lowercase alphanumerics and hyphens only)", ErrInvalidName, name)
	}
	return nil
}

// Validate checks structural validity of a definition.
func (d Definition) Validate() error {
	var errs []error

	if err := ValidateName(d.Name); err != nil {
		errs = append(errs, err)
	}
	if d.Prompt == "" {
		errs = append(errs, errors.New("job: prompt is required"))
	}
	if d.Retries < 0 {
		errs = append(errs, fmt.Errorf("job: retries must be non-negative, got %d", d.Retries))
	}
	if d.Timeout < 0 {
		errs = append(errs, fmt.Errorf("job: timeout must be positive, got %d", d.Timeout))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
