package schedule

// Registration is one calendar trigger registration handed to the external
// scheduler. Calendar holds the rendered compiled form (a single instant or
// a list of instants); it is nil when compilation failed, in which case the
// raw expression is the only usable form.
type Registration struct {
	Job      string `json:"job"`
	Expr     string `json:"expr"`
	Calendar any    `json:"calendar,omitempty"`
}

// Registrar is the boundary to the scheduling facility that actually fires
// triggers. Install replaces any existing registration for the same job
// (last writer wins), so Sync is safe to invoke repeatedly and
// concurrently with itself.
type Registrar interface {
	Install(reg Registration) error
	Remove(job string) error
	Installed() []string
}
