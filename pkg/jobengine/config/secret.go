// secret.go resolves a named secret through a fixed priority chain:
// encrypted vault → OS keyring → environment variable → .env (already
// overlaid onto the environment by LoadDotenv) → plaintext config
// value, warned about at startup.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "jobengine"

// ResolveSecret resolves name through the priority chain. plaintext is
// the last-resort value read from config.yaml; an empty plaintext with
// no other source found means the secret is unset.
func ResolveSecret(vault *Vault, name, plaintext string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	if vault != nil && vault.IsUnlocked() {
		if val, err := vault.Get(name); err == nil && val != "" {
			return val
		}
	}

	if val, err := keyring.Get(keyringService, name); err == nil && val != "" {
		return val
	}

	envName := strings.ToUpper(name)
	if val := os.Getenv(envName); val != "" {
		return val
	}

	if plaintext != "" {
		logger.Warn("secret resolved from plaintext config; consider the vault or OS keyring instead", "name", name)
		return plaintext
	}

	return ""
}

// StoreKeyringSecret saves a secret to the OS keyring.
func StoreKeyringSecret(name, value string) error {
	return keyring.Set(keyringService, name, value)
}
