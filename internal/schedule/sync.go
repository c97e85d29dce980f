package schedule

import (
	"fmt"
	"log/slog"

	"github.com/cronside/cronside/internal/job"
)

// Sync installs compiled trigger registrations for every enabled job with
// a schedule and removes registrations for jobs that are gone, disabled,
// or unscheduled. It is idempotent: re-running with unchanged definitions
// produces the same registered set.
func Sync(defs []job.Definition, reg Registrar, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	want := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.Schedule == "" || !def.IsEnabled() {
			continue
		}

		registration := Registration{Job: def.Name, Expr: def.Schedule}
		if compiled, err := Compile(def.Schedule); err == nil {
			registration.Calendar = compiled.Render()
		} else {
			// Fall back to the raw string; the registrar decides whether
			// it can still fire on it.
			logger.Warn("schedule compile failed, registering raw expression",
				"job", def.Name,
				"expr", def.Schedule,
				"error", err,
			)
		}

		if err := reg.Install(registration); err != nil {
			return fmt.Errorf("schedule: installing trigger for %s: %w", def.Name, err)
		}
		want[def.Name] = struct{}{}
	}

	for _, installed := range reg.Installed() {
		if _, keep := want[installed]; keep {
			continue
		}
		if err := reg.Remove(installed); err != nil {
			return fmt.Errorf("schedule: removing trigger for %s: %w", installed, err)
		}
		logger.Info("trigger registration removed", "job", installed)
	}

	return nil
}
