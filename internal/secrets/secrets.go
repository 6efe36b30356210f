// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials for the extraction and
// refinement services. Keys come from three sources, in priority order:
//
//  1. a directory of plain-text files (filename = key, contents = value);
//  2. a dotenv file;
//  3. the process environment, consulted at lookup time.
//
// Common keys: UPSTAGE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY,
// GEMINI_API_KEY, TELEGRAM_BOT_TOKEN.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// Store is a read-only view over the loaded secrets. It is safe for
// concurrent use.
type Store struct {
	values map[string]string
	env    func(string) (string, bool)
}

// New loads the secret directory and dotenv file named in cfg. Missing
// sources are not errors.
func New(cfg types.SecretsConfig) (*Store, error) {
	values := map[string]string{}

	if cfg.EnvFile != "" {
		env, err := LoadEnvFile(cfg.EnvFile)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			values[k] = v
		}
	}

	if cfg.Dir != "" {
		dir, err := Load(cfg.Dir)
		if err != nil {
			return nil, err
		}
		for k, v := range dir {
			values[k] = v
		}
	}

	return &Store{values: values, env: os.LookupEnv}, nil
}

// FromMap builds a Store over fixed values without an environment fallback.
func FromMap(values map[string]string) *Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Store{values: copied}
}

// Lookup returns the trimmed value for key. Loaded sources win over the
// environment. Empty values count as absent.
func (s *Store) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	if v, ok := s.values[key]; ok && v != "" {
		return v, true
	}
	if s.env != nil {
		if v, ok := s.env(key); ok {
			v = strings.TrimSpace(v)
			return v, v != ""
		}
	}
	return "", false
}

// Keys returns the sorted names of the loaded (non-environment) secrets.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile parses a dotenv file without touching the process
// environment. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out, nil
}
