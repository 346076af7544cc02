// Package env abstracts process environment reads so build stages can be
// tested against a fixed mapping.
package env

import (
	"os"
	"strings"
)

// Provider looks up environment variables.
type Provider interface {
	Lookup(key string) (string, bool)
}

// OS reads the real process environment.
type OS struct{}

func (OS) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Map is a fixed environment, mainly for tests.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Get returns the value of key with surrounding quotes and spaces removed,
// or "" when unset.
func Get(p Provider, key string) string {
	v, _ := p.Lookup(key)
	return strings.Trim(v, "\"' ")
}

// Or returns Get(p, key) if it is non-empty, otherwise def.
func Or(p Provider, key, def string) string {
	if v := Get(p, key); v != "" {
		return v
	}
	return def
}

// Snapshot returns the variables among keys that are visible through p.
// Unset keys are left out.
func Snapshot(p Provider, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := p.Lookup(k); ok {
			out[k] = v
		}
	}
	return out
}
