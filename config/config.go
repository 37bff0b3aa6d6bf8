// Package config loads the service configuration: global settings
// (port, log level) plus named rule-disable lists that switch off
// individual rewrite rules per operation type.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/state"
	"github.com/qalgebra/qalgebra/superop"
)

const (
	defaultPort     = 5725
	defaultLogLevel = "warn"
)

// RuleDisable names rewrite rules to switch off for one operation
// type.
type RuleDisable struct {
	Type  string   `yaml:"type"`
	Rules []string `yaml:"rules"`
}

// Config is the root configuration.
type Config struct {
	Port     int           `yaml:"port,omitempty"`
	LogLevel string        `yaml:"loglevel,omitempty"`
	Disables []RuleDisable `yaml:"disables,omitempty"`
}

// LoadFromSources loads configuration from a main file (optional)
// plus individual disable files (optional) and merges them. Disable
// entries for the same type across sources are rejected as
// duplicates. A missing main file yields the defaults.
func LoadFromSources(configFile string, disableFiles []string) (*Config, error) {
	var cfg Config
	seen := make(map[string]bool)

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("EOF: config file '%s' is empty", configFile)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", configFile, err)
		}
		for _, d := range cfg.Disables {
			if seen[d.Type] {
				return nil, fmt.Errorf("duplicate disable entry for type: %s", d.Type)
			}
			seen[d.Type] = true
		}
	}

	for _, file := range disableFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to read disable file")
			continue
		}
		var d RuleDisable
		if err := yaml.Unmarshal(data, &d); err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to parse YAML disable file")
			continue
		}
		if seen[d.Type] {
			log.Error().Str("file", file).Str("type", d.Type).Msg("Duplicate disable entry")
			continue
		}
		seen[d.Type] = true
		cfg.Disables = append(cfg.Disables, d)
	}

	if err := validateDisables(cfg.Disables); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills empty configuration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

func validateDisables(disables []RuleDisable) error {
	tables := ruleTables()
	for i, d := range disables {
		if d.Type == "" {
			return fmt.Errorf("disable entry at index %d is missing a type", i)
		}
		tbls, ok := tables[d.Type]
		if !ok {
			return fmt.Errorf("disable entry '%s' names an unknown operation type", d.Type)
		}
		if len(d.Rules) == 0 {
			return fmt.Errorf("disable entry '%s' has no rule names", d.Type)
		}
		for _, name := range d.Rules {
			if name == "" {
				return fmt.Errorf("disable entry '%s' contains an empty rule name", d.Type)
			}
			if !hasRule(tbls, name) {
				return fmt.Errorf("disable entry '%s' names unknown rule '%s'", d.Type, name)
			}
		}
	}
	return nil
}

// Apply switches the configured rules off in the live rule tables.
func (cfg *Config) Apply() error {
	tables := ruleTables()
	for _, d := range cfg.Disables {
		tbls, ok := tables[d.Type]
		if !ok {
			return fmt.Errorf("disable entry '%s' names an unknown operation type", d.Type)
		}
		for _, name := range d.Rules {
			for _, tbl := range tbls {
				tbl.SetDisabled(name, true)
			}
			log.Debug().Str("type", d.Type).Str("rule", name).Msg("Rule disabled")
		}
	}
	return nil
}

// ruleTables maps operation type tags to their rewrite tables across
// all algebras.
func ruleTables() map[string][]*expr.RuleTable {
	tables := make(map[string][]*expr.RuleTable)
	for _, a := range []*quantum.Algebra{
		operator.Algebra(), state.Algebra(), superop.Algebra(),
	} {
		for _, t := range []*expr.OpType{a.Plus, a.Times, a.ScalarTimes, a.Adjoint, a.IndexedSum} {
			if t == nil {
				continue
			}
			var tbls []*expr.RuleTable
			if t.Rules != nil {
				tbls = append(tbls, t.Rules)
			}
			if t.BinaryRules != nil {
				tbls = append(tbls, t.BinaryRules)
			}
			if len(tbls) > 0 {
				tables[t.HeadTag] = tbls
			}
		}
	}
	return tables
}

func hasRule(tbls []*expr.RuleTable, name string) bool {
	for _, tbl := range tbls {
		for _, n := range tbl.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}
