// Package config loads the daemon configuration: the device topology
// (motherboards, daughterboard frontends and their wiring descriptors)
// plus daemon settings. Values come from built-in defaults, an optional
// YAML file, and SDRC_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sdr-control/sdrc/internal/periph"
)

// Config is the root daemon configuration.
type Config struct {
	Listen     string             `yaml:"listen"`
	AuthSecret string             `yaml:"authSecret"`
	LogLevel   string             `yaml:"logLevel"`
	AuditDir   string             `yaml:"auditDir"`
	Mboards    []MotherboardConfig `yaml:"mboards"`
}

// MotherboardConfig describes one motherboard of the device.
type MotherboardConfig struct {
	Radios    int                     `yaml:"radios"`
	Transport string                  `yaml:"transport"`
	TickRate  float64                 `yaml:"tickRate"`
	RecvArgs  map[string]string       `yaml:"recvArgs"`
	SendArgs  map[string]string       `yaml:"sendArgs"`
	Dboards   map[string]DboardConfig `yaml:"dboards"`
}

// DboardConfig maps frontend names to their connection descriptors
// ("IQ", "QI", "I" or "Q") per direction.
type DboardConfig struct {
	RxFrontends map[string]string `yaml:"rxFrontends"`
	TxFrontends map[string]string `yaml:"txFrontends"`
}

// Default returns a single simulated motherboard with two radios and
// conventionally wired A/B daughterboards.
func Default() *Config {
	dboard := DboardConfig{
		RxFrontends: map[string]string{"0": "IQ"},
		TxFrontends: map[string]string{"0": "QI"},
	}
	return &Config{
		Listen:   ":8450",
		LogLevel: "info",
		AuditDir: "logs",
		Mboards: []MotherboardConfig{
			{
				Radios:    2,
				Transport: string(periph.PathEthernet),
				TickRate:  200e6,
				Dboards:   map[string]DboardConfig{"A": dboard, "B": dboard},
			},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// at path (empty path skips the file), and environment overrides, then
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SDRC_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SDRC_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("SDRC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SDRC_AUDIT_DIR"); v != "" {
		cfg.AuditDir = v
	}
}

var validConnections = map[string]bool{"IQ": true, "QI": true, "I": true, "Q": true}

// Validate checks the structural rules of the topology.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if len(c.Mboards) == 0 {
		return fmt.Errorf("config: at least one mboard required")
	}
	for i, mb := range c.Mboards {
		if mb.Radios < 1 || mb.Radios > 2 {
			return fmt.Errorf("config: mboard %d: radios must be 1 or 2, got %d", i, mb.Radios)
		}
		switch periph.TransportPath(mb.Transport) {
		case periph.PathEthernet, periph.PathNIRIO:
		default:
			return fmt.Errorf("config: mboard %d: unknown transport %q", i, mb.Transport)
		}
		if mb.TickRate <= 0 {
			return fmt.Errorf("config: mboard %d: tickRate must be positive", i)
		}
		for slot, db := range mb.Dboards {
			if slot != "A" && slot != "B" {
				return fmt.Errorf("config: mboard %d: dboard slot must be A or B, got %q", i, slot)
			}
			for _, fes := range []map[string]string{db.RxFrontends, db.TxFrontends} {
				for fe, conn := range fes {
					if !validConnections[conn] {
						return fmt.Errorf("config: mboard %d dboard %s frontend %s: bad connection %q", i, slot, fe, conn)
					}
				}
			}
		}
	}
	return nil
}
