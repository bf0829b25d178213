// Package registry holds the immutable map of site-collector backends the
// gateway aggregates. Loaded once at startup; read-only afterwards, so every
// aggregation call may read it without synchronization.
package registry

import (
	"fmt"
	"os"
	"sort"
	"time"

	dErrors "attendgate/pkg/domain-errors"
)

const defaultTimeout = 15 * time.Second

// Target describes one site collector.
type Target struct {
	Name        string
	BaseURL     string
	Location    string
	Timeout     time.Duration
	Devices     []string
	Description string
	Holidays    []Holiday
}

// Holiday is a configured non-working day at one site.
type Holiday struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name,omitempty"`
}

// Registry is the read-mostly name → Target map.
type Registry struct {
	targets map[string]*Target
	ordered []*Target
}

// New builds a Registry from targets. Names must be unique and URLs non-empty.
func New(targets []Target) (*Registry, error) {
	r := &Registry{targets: make(map[string]*Target, len(targets))}
	for i := range targets {
		t := targets[i]
		if t.Name == "" || t.BaseURL == "" {
			return nil, fmt.Errorf("backend target %d: name and url are required", i)
		}
		if _, dup := r.targets[t.Name]; dup {
			return nil, fmt.Errorf("duplicate backend target %q", t.Name)
		}
		if t.Timeout <= 0 {
			t.Timeout = defaultTimeout
		}
		r.targets[t.Name] = &t
		r.ordered = append(r.ordered, &t)
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].Name < r.ordered[j].Name })
	return r, nil
}

// Get returns the named target or a not-found domain error.
func (r *Registry) Get(name string) (*Target, error) {
	t, ok := r.targets[name]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "backend %q not found", name)
	}
	return t, nil
}

// All returns every target in stable name order.
func (r *Registry) All() []*Target {
	return r.ordered
}

// Names returns all target names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Holidays returns every configured holiday across all targets in stable
// target order.
func (r *Registry) Holidays() []Holiday {
	var all []Holiday
	for _, t := range r.ordered {
		all = append(all, t.Holidays...)
	}
	return all
}

// HolidaysForYear filters configured holidays by calendar year. Entries with
// an unparseable or missing date are kept rather than silently dropped.
func (r *Registry) HolidaysForYear(year int) []Holiday {
	var filtered []Holiday
	for _, h := range r.Holidays() {
		if h.Date == "" {
			filtered = append(filtered, h)
			continue
		}
		d, err := time.Parse("2006-01-02", h.Date)
		if err != nil || d.Year() == year {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

const maxEnvBackends = 10

// FromEnv loads the registry from the JSON file at path when it exists, else
// from numbered environment variables (BACKEND_URL, BACKEND_1_URL, ...). The
// two paths mirror how deployments hand the gateway its fleet.
func FromEnv(path string) (*Registry, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	var targets []Target
	for i := 0; i < maxEnvBackends; i++ {
		var name, url, location string
		if i == 0 {
			name = os.Getenv("BACKEND_NAME")
			url = os.Getenv("BACKEND_URL")
			location = os.Getenv("BACKEND_LOCATION")
		} else {
			name = os.Getenv(fmt.Sprintf("BACKEND_%d_NAME", i))
			url = os.Getenv(fmt.Sprintf("BACKEND_%d_URL", i))
			location = os.Getenv(fmt.Sprintf("BACKEND_%d_LOCATION", i))
		}
		if name == "" || url == "" {
			continue
		}
		if location == "" {
			location = fmt.Sprintf("Location %d", i)
		}
		targets = append(targets, Target{Name: name, BaseURL: url, Location: location})
	}

	return New(targets)
}
