// Package config describes which ports jackautoplug keeps connected.
//
// Values come from an optional YAML file and from command-line flags; flags
// win field by field:
//
//	client-name: jackautoplug
//	from-client: system
//	to-client: reaper
//	from-ports: [capture_1, capture_2]
//	to-ports: [in1, in2]
//	listen: 127.0.0.1:9464
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"jackautoplug"

	"gopkg.in/yaml.v3"
)

// DefaultClientName is the JACK client name used when none is configured.
const DefaultClientName = "jackautoplug"

// Config holds the desired connections and daemon settings.
type Config struct {
	ClientName  string   `yaml:"client-name,omitempty"`
	StartServer bool     `yaml:"start-server,omitempty"`
	FromClient  string   `yaml:"from-client,omitempty"`
	ToClient    string   `yaml:"to-client,omitempty"`
	FromPorts   []string `yaml:"from-ports,omitempty"`
	ToPorts     []string `yaml:"to-ports,omitempty"`
	Listen      string   `yaml:"listen,omitempty"` // introspection HTTP address
}

// Load reads a YAML config file. Unknown keys are rejected so typos do not
// silently drop ports.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge returns c with every field set in override applied on top.
// A non-nil port list in override replaces the whole list.
func (c Config) Merge(override Config) Config {
	out := c
	if override.ClientName != "" {
		out.ClientName = override.ClientName
	}
	if override.StartServer {
		out.StartServer = true
	}
	if override.FromClient != "" {
		out.FromClient = override.FromClient
	}
	if override.ToClient != "" {
		out.ToClient = override.ToClient
	}
	if override.FromPorts != nil {
		out.FromPorts = override.FromPorts
	}
	if override.ToPorts != nil {
		out.ToPorts = override.ToPorts
	}
	if override.Listen != "" {
		out.Listen = override.Listen
	}
	return out
}

// Validate reports missing required values in the same form cobra uses for
// required flags.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.FromClient) == "" {
		missing = append(missing, `"from-client"`)
	}
	if strings.TrimSpace(c.ToClient) == "" {
		missing = append(missing, `"to-client"`)
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

// Pairs validates c and builds the desired connection set.
func (c Config) Pairs() ([]jackautoplug.Pair, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return jackautoplug.NewPairs(c.FromClient, c.FromPorts, c.ToClient, c.ToPorts)
}

// Name returns the JACK client name, falling back to DefaultClientName.
func (c Config) Name() string {
	if name := strings.TrimSpace(c.ClientName); name != "" {
		return name
	}
	return DefaultClientName
}
