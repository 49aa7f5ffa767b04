package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they map to keys,
// so LOGPIPE_ON_ERROR becomes "on_error".
const EnvPrefix = "LOGPIPE_"

// Config holds defaults for the CLI. Flags override every field.
type Config struct {
	Source   string `koanf:"source" validate:"required,oneof=sample file stdin cloudwatch"`
	File     string `koanf:"file"`
	Level    string `koanf:"level" validate:"required"`
	Ops      string `koanf:"ops"`
	OnError  string `koanf:"on_error" validate:"required,oneof=fail skip"`
	Format   string `koanf:"format" validate:"required,oneof=text json"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=trace debug info warn error disabled"`
	Workers  int    `koanf:"workers" validate:"gte=0"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Source:   "sample",
		Level:    "ERROR",
		OnError:  "fail",
		Format:   "text",
		LogLevel: "info",
		Workers:  1,
	}
}

// Load reads envFiles (".env" when none are given; a missing file is fine),
// then LOGPIPE_* environment variables on top of Default, and validates.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
