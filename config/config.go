// Package config holds per-concern configuration structs with defaults that
// can be overridden from YAML files and environment variables.
package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/tessellate-ai/memring/errors"
)

// Config aggregates every subsystem's configuration.
type Config struct {
	Log       *LogConfig       `yaml:"log"`
	Memory    *MemoryConfig    `yaml:"memory"`
	Forge     *ForgeConfig     `yaml:"forge"`
	Scheduler *SchedulerConfig `yaml:"scheduler"`
	OpenAI    *OpenAIConfig    `yaml:"openai"`
}

func NewConfig() *Config {
	return &Config{
		Log:       NewLogConfig(),
		Memory:    NewMemoryConfig(),
		Forge:     NewForgeConfig(),
		Scheduler: NewSchedulerConfig(),
		OpenAI:    NewOpenAIConfig(),
	}
}

// LoadFile overlays settings from a YAML file onto the defaults.
func LoadFile(path string) (*Config, error) {
	conf := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return conf, nil
}
