package gateway

import "time"

// placeholderToken is the documented insecure default; leaving it (or an
// empty token) in place disables auth enforcement entirely.
const placeholderToken = "changeme"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Token           string        `yaml:"token"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults. The write timeout
// stays unset because the stream endpoint holds connections open.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8420"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// authEnabled reports whether bearer auth is enforced.
func (c Config) authEnabled() bool {
	return c.Token != "" && c.Token != placeholderToken
}
