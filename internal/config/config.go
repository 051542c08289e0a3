// Package config loads the explicit run configuration. There is no ambient
// state; callers pass the loaded config down to each component.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every setting for a publish run.
type Config struct {
	RegistryURL             string   `yaml:"registryURL"`
	PackageName             string   `yaml:"packageName"`
	OutputDir               string   `yaml:"outputDir"`
	CooldownDays            int      `yaml:"cooldownDays"`
	PropagationDelaySeconds int      `yaml:"propagationDelaySeconds"`
	DryRun                  bool     `yaml:"dryRun"`
	NotNeeded               []string `yaml:"notNeeded"`

	// Token is read from NPM_TOKEN, never from the file.
	Token string `yaml:"-"`
}

// Default returns the stock configuration: publish at most weekly, wait a
// minute for registry propagation.
func Default() Config {
	return Config{
		RegistryURL:             "https://registry.npmjs.org",
		PackageName:             "types-registry",
		OutputDir:               "output/types-registry",
		CooldownDays:            7,
		PropagationDelaySeconds: 60,
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Token = os.Getenv("NPM_TOKEN")
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Token = os.Getenv("NPM_TOKEN")
	return cfg, nil
}

// Cooldown returns the minimum age of the live package before a republish.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownDays) * 24 * time.Hour
}

// PropagationDelay returns the wait between publishing and verification.
func (c Config) PropagationDelay() time.Duration {
	return time.Duration(c.PropagationDelaySeconds) * time.Second
}
