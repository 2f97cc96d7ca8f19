package config

import "time"

// Config holds runtime settings for the store CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the store gRPC endpoint.
//   - AccessToken: token sent with every authenticated call; may be entered
//     interactively with the login command instead.
//   - RequestTimeout: deadline of a single call.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.AccessToken = ""
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
