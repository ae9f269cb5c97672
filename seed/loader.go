package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/Juzanki/smartbiz-hub/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader reads pre-registered webhook endpoints from endpoints.yaml
 * and installs them at startup, so deployments can ship a known set
 * of receivers without calling the HTTP API first
 */

// Config represents the structure of endpoints.yaml
type Config struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig represents a single endpoint in the YAML file
type EndpointConfig struct {
	ID                 string   `yaml:"id"`
	UserID             int64    `yaml:"user_id"`
	URL                string   `yaml:"url"`
	Secret             string   `yaml:"secret"`
	Description        string   `yaml:"description"`
	SubscribedEvents   []string `yaml:"subscribed_events"`
	Active             *bool    `yaml:"active"`                // Default: true
	MaxRetries         int      `yaml:"max_retries"`           // Default: webhook.DefaultMaxRetries
	BackoffSeconds     int      `yaml:"backoff_seconds"`       // Default: webhook.DefaultBackoffSeconds
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"` // Optional
}

// Loader holds the parsed seed endpoints
type Loader struct {
	endpoints []webhook.Endpoint
}

// NewLoader creates a new seed loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the endpoints.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading endpoints file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing endpoints YAML: %w", err)
	}

	for _, ec := range config.Endpoints {
		active := true
		if ec.Active != nil {
			active = *ec.Active
		}

		e := webhook.Endpoint{
			ID:                 ec.ID,
			UserID:             ec.UserID,
			URL:                ec.URL,
			Secret:             ec.Secret,
			Description:        ec.Description,
			SubscribedEvents:   ec.SubscribedEvents,
			Active:             active,
			MaxRetries:         ec.MaxRetries,
			BackoffSeconds:     ec.BackoffSeconds,
			RateLimitPerMinute: ec.RateLimitPerMinute,
		}

		if err := e.Validate(); err != nil {
			return fmt.Errorf("validating seed endpoint %q: %w", ec.ID, err)
		}

		l.endpoints = append(l.endpoints, e)
	}

	return nil
}

// List returns the loaded seed endpoints
func (l *Loader) List() []webhook.Endpoint {
	return l.endpoints
}

// Apply registers every loaded endpoint through the webhook service.
// Endpoints that already exist are updated in place so edits to the
// seed file take effect on restart.
func (l *Loader) Apply(ctx context.Context, svc webhook.UseCase) (int, error) {
	applied := 0
	for _, e := range l.endpoints {
		if e.ID != "" {
			if existing, err := svc.GetEndpoint(ctx, e.ID); err == nil {
				// Keep a generated secret stable across restarts.
				if e.Secret == "" {
					e.Secret = existing.Secret
				}
				if _, err := svc.UpdateEndpoint(ctx, e); err != nil {
					return applied, fmt.Errorf("updating seed endpoint %q: %w", e.ID, err)
				}
				applied++
				continue
			}
		}

		if _, err := svc.RegisterEndpoint(ctx, e); err != nil {
			return applied, fmt.Errorf("registering seed endpoint %q: %w", e.ID, err)
		}
		applied++
	}
	return applied, nil
}
