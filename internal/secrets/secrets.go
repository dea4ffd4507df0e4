// Package secrets resolves credentials such as the error reporting DSN from
// environment variable references or mounted secret files.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Copani/matRad/internal/errors"
	"github.com/Copani/matRad/internal/logger"
)

// maxSecretFileSize limits secret file reads; secrets are tokens, not documents
const maxSecretFileSize = 64 * 1024

// ExpandString resolves ${VAR} and ${VAR:-default} references in s.
// A reference without fallback to an unset variable is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missingVars []string
	expanded := os.Expand(s, func(key string) string {
		varName, defaultValue, fallbackProvided := strings.Cut(key, ":-")

		value := os.Getenv(varName)
		if value == "" {
			if fallbackProvided {
				return defaultValue
			}
			missingVars = append(missingVars, varName)
		}
		return value
	})

	if len(missingVars) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missingVars, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret from path on fs, trimming trailing newlines.
// Files readable by group or others are accepted with a warning.
func ReadFile(fs afero.Fs, path string) (string, error) {
	if path == "" {
		return "", secretError(fmt.Errorf("secret file path is empty"), errors.CategoryValidation, "")
	}
	cleanPath := filepath.Clean(path)

	info, err := fs.Stat(cleanPath)
	if err != nil {
		return "", secretError(fmt.Errorf("failed to stat secret file: %w", err), errors.CategoryFileIO, cleanPath)
	}
	if !info.Mode().IsRegular() {
		return "", secretError(fmt.Errorf("secret path is not a regular file"), errors.CategoryValidation, cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError(fmt.Errorf("secret file too large (max %d bytes)", maxSecretFileSize), errors.CategoryValidation, cleanPath)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Warn("Secret file %s is readable by group or others (perms: %04o)", cleanPath, perm)
	}

	data, err := afero.ReadFile(fs, cleanPath)
	if err != nil {
		return "", secretError(fmt.Errorf("failed to read secret file: %w", err), errors.CategoryFileIO, cleanPath)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError(fmt.Errorf("secret file is empty"), errors.CategoryValidation, cleanPath)
	}
	return secret, nil
}

// Resolve determines a secret from its sources. A file path wins over the
// value, which is expanded for ${VAR} references. Both empty yields "".
func Resolve(fs afero.Fs, filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(fs, filePath)
	}
	return ExpandString(value)
}

func secretError(err error, category errors.ErrorCategory, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(category).
		FileContext(path).
		Build()
}
