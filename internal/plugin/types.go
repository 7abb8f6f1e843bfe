// Package plugin runs external programs on cursor-mode effects. Each plugin
// lives in its own directory with a plugin.json manifest naming the effect
// kinds it handles.
package plugin

import (
	"encoding/json"
	"time"
)

// Manifest describes a plugin's metadata and the actions it handles.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"` // effect kinds, e.g. "click", "scroll"
	// Config is passed unchanged in every request.
	Config json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin subscribes to action.
func (m Manifest) Handles(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written as JSON to the plugin's stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response is read as JSON from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Config enables plugin dispatch.
type Config struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir" json:"dir"` // empty uses ~/.mudra/plugins
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	Queue   int           `yaml:"queue" mapstructure:"queue" json:"queue"` // pending requests before new ones are dropped
}

// DefaultConfig returns a disabled configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 2 * time.Second,
		Queue:   32,
	}
}
