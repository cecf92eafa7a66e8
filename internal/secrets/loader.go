package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where an API key or token can be found.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline value from the configuration file.
	Value string
	// Env names an environment variable holding the value.
	Env string
	// File points to a file containing the value.
	File string
}

// Load resolves the secret. File takes precedence over Env, Env over Value.
// The result is always trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
