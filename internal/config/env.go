package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is consulted when the config names no env file.
const DefaultEnvFile = ".env"

// LoadEnv reads KEY=VALUE pairs destined for the external process
// environment (API endpoints, keys). The pairs are never applied to the
// runner's own process.
//
// When path is empty the default .env is tried and its absence is fine;
// an explicitly configured file must exist.
func LoadEnv(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return envMap, nil
}
