package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cronside/cronside/internal/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config holds YAML configuration for the tracing module.
type Config struct {
	// Endpoint is the OTLP-HTTP collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	// ServiceName overrides the reported service name.
	ServiceName string `yaml:"service_name,omitempty"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure,omitempty"`
}

// Module is the "obs.otel" module. Without it, tracer calls go through the
// default no-op provider.
type Module struct {
	config   Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "obs.otel",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	if m.config.ServiceName == "" {
		m.config.ServiceName = "cronside"
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.Endpoint == "" {
		return errors.New("observability: endpoint is required")
	}
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	shutdown, err := InitTracer(context.Background(), m.config.ServiceName, m.config.Endpoint, m.config.Insecure)
	if err != nil {
		return err
	}
	m.shutdown = shutdown
	m.logger.Info("tracing enabled", "endpoint", m.config.Endpoint, "service", m.config.ServiceName)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.shutdown == nil {
		return nil
	}
	// Flush failures on shutdown are not worth failing the stop sequence.
	if err := m.shutdown(ctx); err != nil {
		m.logger.Warn("trace provider shutdown failed", "error", err)
	}
	return nil
}
