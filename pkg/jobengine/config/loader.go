package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads path as YAML into a Config, applying Effective() defaults.
// A missing file is not an error: it returns Default().Effective().
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default().Effective(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.Effective(), nil
}

// LoadDotenv overlays environment variables from envPath (".env" by
// convention) onto the process environment, loaded once at startup
// before the rest of the config is resolved. A missing file is not an
// error.
func LoadDotenv(envPath string) error {
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: load %s: %w", envPath, err)
	}
	return nil
}
