package notify

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/cronside/cronside/internal/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config holds YAML configuration for the webhook notifier module.
type Config struct {
	// URL receives the completion events.
	URL string `yaml:"url"`

	// Secret, when set, signs request bodies with HMAC-SHA256.
	Secret string `yaml:"secret,omitempty"`
}

// Module is the "notify.webhook" module. It publishes the notifier under
// the "notify" service name for the runner to pick up.
type Module struct {
	config Config
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "notify.webhook",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	ctx.RegisterService("notify", NewWebhook(m.config.URL, m.config.Secret, m.logger))
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.URL == "" {
		return errors.New("notify: webhook url is required")
	}
	if _, err := url.ParseRequestURI(m.config.URL); err != nil {
		return errors.New("notify: webhook url is not a valid URL")
	}
	return nil
}
