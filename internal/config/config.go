// Package config is the on-disk key-value store for patchctl settings.
// The store is loaded once per invocation and written back immediately on
// every set, so there is no shared mutable state between commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

// Recognized configuration keys. max_path is a view over max_refpath: the
// installed Max bundle is the refpages directory with the fixed suffix
// stripped, so only the refpath is persisted.
const (
	KeyMaxPath      = "max_path"
	KeyMaxRefpath   = "max_refpath"
	KeyPackagesPath = "packages_path"
	KeyWaitTime     = "wait_time"
)

const (
	refpathSuffix      = "Contents/Resources/C74/docs/refpages/"
	defaultMaxRefpath  = "/Applications/Max.app/" + refpathSuffix
	defaultWaitSeconds = 30.0

	// EnvConfigDir overrides the config directory, mainly for tests.
	EnvConfigDir = "PATCHCTL_CONFIG_DIR"
)

// Keys lists every recognized key in display order.
func Keys() []string {
	return []string{KeyMaxPath, KeyMaxRefpath, KeyPackagesPath, KeyWaitTime}
}

// Store wraps one loaded config file.
type Store struct {
	v    *viper.Viper
	path string
}

// Open loads the config file, creating defaults in memory when it does not
// exist yet. The file is only written on Set.
func Open() (*Store, error) {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		dir = filepath.Join(base, "patchctl")
	}

	v := viper.New()
	path := filepath.Join(dir, "config.json")
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(KeyMaxRefpath, defaultMaxRefpath)
	v.SetDefault(KeyPackagesPath, "")
	v.SetDefault(KeyWaitTime, defaultWaitSeconds)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, cmderr.Validationf("failed to read config '%s': %v", path, err)
	}

	return &Store{v: v, path: path}, nil
}

// Get returns the value for a recognized key. Unknown keys are usage errors.
func (s *Store) Get(key string) (any, error) {
	switch key {
	case KeyMaxPath:
		return s.maxPath(), nil
	case KeyMaxRefpath:
		return s.v.GetString(KeyMaxRefpath), nil
	case KeyPackagesPath:
		return s.v.GetString(KeyPackagesPath), nil
	case KeyWaitTime:
		return s.v.GetFloat64(KeyWaitTime), nil
	default:
		return nil, cmderr.Usagef("unsupported config key: %s", key)
	}
}

// Set stores a recognized key and writes the file back immediately,
// returning the effective value.
func (s *Store) Set(key, value string) (any, error) {
	switch key {
	case KeyMaxPath:
		s.v.Set(KeyMaxRefpath, strings.TrimRight(value, "/")+"/"+refpathSuffix)
	case KeyMaxRefpath, KeyPackagesPath:
		s.v.Set(key, value)
	case KeyWaitTime:
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, cmderr.Usagef("wait_time must be numeric")
		}
		s.v.Set(KeyWaitTime, seconds)
	default:
		return nil, cmderr.Usagef("unsupported config key: %s", key)
	}

	if err := s.write(); err != nil {
		return nil, err
	}
	return s.Get(key)
}

// MaxPath returns the configured Max application path.
func (s *Store) MaxPath() string { return s.maxPath() }

// PackagesPath returns the external-package search path, or "".
func (s *Store) PackagesPath() string { return s.v.GetString(KeyPackagesPath) }

// WaitTime returns the configured validation wait time in seconds.
func (s *Store) WaitTime() float64 { return s.v.GetFloat64(KeyWaitTime) }

// WaitTimeStrict returns the configured wait time, rejecting non-numeric
// values a hand-edited config file may carry.
func (s *Store) WaitTimeStrict() (float64, error) {
	raw := s.v.Get(KeyWaitTime)
	switch value := raw.(type) {
	case float64:
		return value, nil
	case int:
		return float64(value), nil
	case string:
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, cmderr.Validationf("invalid validation timeout value: %v", raw)
		}
		return seconds, nil
	default:
		return 0, cmderr.Validationf("invalid validation timeout value: %v", raw)
	}
}

func (s *Store) maxPath() string {
	refpath := s.v.GetString(KeyMaxRefpath)
	if trimmed, ok := strings.CutSuffix(refpath, refpathSuffix); ok {
		return trimmed
	}
	return refpath
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return cmderr.Validationf("failed to write config '%s': %v", s.path, err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return cmderr.Validationf("failed to write config '%s': %v", s.path, err)
	}
	return nil
}
