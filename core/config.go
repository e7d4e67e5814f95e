package core

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxDrawAttempts     = 64
	DefaultActivityBufferSize  = 128
	defaultDispatchServiceName = "dispatcher"
)

type GeneratorConfig struct {
	MaxDrawAttempts int `koanf:"max_draw_attempts" mapstructure:"max_draw_attempts"`
}

type ActivityConfig struct {
	Enabled    bool `koanf:"enabled" mapstructure:"enabled"`
	BufferSize int  `koanf:"buffer_size" mapstructure:"buffer_size"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Generator   GeneratorConfig `koanf:"generator" mapstructure:"generator"`
	Activity    ActivityConfig  `koanf:"activity" mapstructure:"activity"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: defaultDispatchServiceName,
		Generator: GeneratorConfig{
			MaxDrawAttempts: DefaultMaxDrawAttempts,
		},
		Activity: ActivityConfig{
			BufferSize: DefaultActivityBufferSize,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Generator.MaxDrawAttempts <= 0 {
		return fmt.Errorf("core: generator.max_draw_attempts must be positive")
	}
	if c.Activity.BufferSize < 0 {
		return fmt.Errorf("core: activity.buffer_size must be non-negative")
	}
	return nil
}
