package appconfig

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	anthropicKeyEnv = "ANTHROPIC_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
)

// SecretEnvVar names the environment variable holding the API key for the
// backend that serves modelID.
func SecretEnvVar(modelID string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(modelID)), "openai/") {
		return openAIKeyEnv
	}
	return anthropicKeyEnv
}

// LoadSecret loads .env files (when present) into the process environment
// and returns the API key for modelID. An absent key is a ConfigError.
func LoadSecret(modelID string, envFiles ...string) (string, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", &ConfigError{Source: ".env", Err: err}
	}
	name := SecretEnvVar(modelID)
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", configErrorf("environment", "%s not found in environment variables", name)
	}
	return key, nil
}
