// Package env contains helpers for loading and merging environment variables from multiple sources.
package env

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Vars represents a simple string-to-string map of variables.
type Vars map[string]string

// FromOS builds a Vars map from the current process environment.
func FromOS() Vars {
	out := make(Vars)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Merge merges several Vars maps into one, later maps overriding earlier keys.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// LoadEnvFile loads a single .env-style file into Vars.
func LoadEnvFile(path string) (Vars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	envMap, err := godotenv.Parse(f)
	if err != nil {
		return nil, err
	}
	return Vars(envMap), nil
}

// Resolve returns the process environment layered over the variables of envFile.
// An empty envFile yields the process environment alone.
func Resolve(envFile string) (Vars, error) {
	if strings.TrimSpace(envFile) == "" {
		return FromOS(), nil
	}
	fileVars, err := LoadEnvFile(envFile)
	if err != nil {
		return nil, fmt.Errorf("load env file %q: %w", envFile, err)
	}
	return Merge(fileVars, FromOS()), nil
}

// Present reports whether key is set to a non-blank value.
func (v Vars) Present(key string) bool {
	return strings.TrimSpace(v[key]) != ""
}
