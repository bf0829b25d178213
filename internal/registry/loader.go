package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// fileTarget is the on-disk shape: a JSON object keyed by backend name.
type fileTarget struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Location    string   `json:"location"`
	Timeout     int       `json:"timeout"` // seconds
	Devices     []string  `json:"devices"`
	Description string    `json:"description"`
	Holidays    []Holiday `json:"holidays"`
}

// LoadFile reads a backend registry from a JSON file.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backends config: %w", err)
	}

	var entries map[string]fileTarget
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse backends config %s: %w", path, err)
	}

	targets := make([]Target, 0, len(entries))
	for name, e := range entries {
		if e.Name == "" {
			e.Name = name
		}
		targets = append(targets, Target{
			Name:        e.Name,
			BaseURL:     e.URL,
			Location:    e.Location,
			Timeout:     time.Duration(e.Timeout) * time.Second,
			Devices:     e.Devices,
			Description: e.Description,
			Holidays:    e.Holidays,
		})
	}

	return New(targets)
}
