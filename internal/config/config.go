package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const FileName = "crmcore.yml"

// Config models crmcore.yml.
type Config struct {
	Pipeline struct {
		CardTypes      map[string]CollectionRef `yaml:"card_types"`
		ArchivedStatus string                   `yaml:"archived_status"`
	} `yaml:"pipeline"`
	Ordering struct {
		EmptyStageOrder float64 `yaml:"empty_stage_order"`
		TailStep        float64 `yaml:"tail_step"`
	} `yaml:"ordering"`
	Contacts struct {
		Types map[string]CollectionRef `yaml:"types"`
	} `yaml:"contacts"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

type CollectionRef struct {
	Collection string `yaml:"collection"`
}

var reservedCollections = map[string]bool{"conformities": true, "activity_logs": true}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with crm init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Pipeline.CardTypes) == 0 {
		return fmt.Errorf("config.pipeline.card_types is required")
	}
	if c.Pipeline.ArchivedStatus == "" {
		return fmt.Errorf("config.pipeline.archived_status is required")
	}
	if c.Ordering.TailStep <= 0 {
		return fmt.Errorf("config.ordering.tail_step must be positive")
	}
	if c.Ordering.EmptyStageOrder == 0 {
		return fmt.Errorf("config.ordering.empty_stage_order must be non-zero")
	}
	seen := map[string]string{}
	check := func(section string, types map[string]CollectionRef) error {
		for typ, ref := range types {
			if typ == "" {
				return fmt.Errorf("%s contains empty type", section)
			}
			if ref.Collection == "" {
				return fmt.Errorf("%s.%s.collection is required", section, typ)
			}
			if reservedCollections[ref.Collection] {
				return fmt.Errorf("%s.%s uses reserved collection %s", section, typ, ref.Collection)
			}
			if other, ok := seen[ref.Collection]; ok {
				return fmt.Errorf("collection %s used by both %s and %s", ref.Collection, other, typ)
			}
			seen[ref.Collection] = typ
		}
		return nil
	}
	if err := check("config.pipeline.card_types", c.Pipeline.CardTypes); err != nil {
		return err
	}
	if err := check("config.contacts.types", c.Contacts.Types); err != nil {
		return err
	}
	for typ := range c.Contacts.Types {
		if _, ok := c.Pipeline.CardTypes[typ]; ok {
			return fmt.Errorf("type %s is both a card type and a contact type", typ)
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is invalid", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format %q is invalid", c.Log.Format)
	}
	return nil
}

// CardTypeNames returns the configured card types, sorted.
func (c *Config) CardTypeNames() []string {
	return sortedKeys(c.Pipeline.CardTypes)
}

// ContactTypeNames returns the configured contact types, sorted.
func (c *Config) ContactTypeNames() []string {
	return sortedKeys(c.Contacts.Types)
}

func sortedKeys(m map[string]CollectionRef) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional falls back to Default when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const defaultTemplate = `pipeline:
  card_types:
    deal:
      collection: deals
    task:
      collection: tasks
    ticket:
      collection: tickets
    growth_hack:
      collection: growth_hacks
  archived_status: archived

ordering:
  empty_stage_order: 100
  tail_step: 10

contacts:
  types:
    customer:
      collection: customers
    company:
      collection: companies

server:
  addr: 127.0.0.1:8080
  base_path: /v0

log:
  level: info
  format: text
`
