// Package config holds per-agent LLM settings for BraveCall.
//
// Every agent (safety, routing, validator and the specialists) has its own
// model, temperature and token budget. Defaults are compiled in; an optional
// YAML file may override any subset of them.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Agent names used as keys in the settings table.
const (
	AgentSafety         = "safety"
	AgentRouting        = "routing"
	AgentValidator      = "validator"
	AgentConversational = "conversational"
	AgentEducational    = "educational"
	AgentEmotional      = "emotional"
	AgentCreative       = "creative"
	AgentProblemSolving = "problem_solving"
)

// DefaultModel is the client-wide model. An agent with an empty Model uses
// whatever default the LLM client was built with.
const DefaultModel = "gpt-4o-mini"

// AgentSettings configures a single LLM-backed agent.
type AgentSettings struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Agents maps agent names to their settings.
type Agents map[string]AgentSettings

// DefaultAgents returns the built-in settings table. Classification agents run
// cold; the creative personas run hot. Models are left empty.
func DefaultAgents() Agents {
	return Agents{
		AgentSafety:         {Temperature: 0, MaxTokens: 500},
		AgentRouting:        {Temperature: 0.3, MaxTokens: 200},
		AgentValidator:      {Temperature: 0, MaxTokens: 300},
		AgentConversational: {Temperature: 0.9, MaxTokens: 1000},
		AgentEducational:    {Temperature: 0.7, MaxTokens: 800},
		AgentEmotional:      {Temperature: 0.7, MaxTokens: 800},
		AgentCreative:       {Temperature: 0.95, MaxTokens: 1000},
		AgentProblemSolving: {Temperature: 0.6, MaxTokens: 800},
	}
}

// Get returns the settings for name, falling back to the defaults.
func (a Agents) Get(name string) AgentSettings {
	if s, ok := a[name]; ok {
		return s
	}
	return DefaultAgents()[name]
}

// override is one agent entry in the YAML file. Temperature is a pointer so
// that an explicit 0 can be told apart from an omitted value.
type override struct {
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// file is the on-disk YAML layout.
type file struct {
	DefaultModel string              `yaml:"default_model"`
	Agents       map[string]override `yaml:"agents"`
}

// LoadAgents reads agent settings from a YAML file and merges them over the
// defaults. An empty path returns the defaults unchanged.
func LoadAgents(path string) (Agents, error) {
	agents := DefaultAgents()
	if path == "" {
		return agents, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open agent config file: %w", err)
	}
	defer f.Close()

	var cfg file
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode agent config file: %w", err)
	}

	if cfg.DefaultModel != "" {
		for name, s := range agents {
			s.Model = cfg.DefaultModel
			agents[name] = s
		}
	}

	for name, o := range cfg.Agents {
		base, known := agents[name]
		if !known {
			slog.Warn("config.LoadAgents: ignoring unknown agent", "agent", name, "path", path)
			continue
		}
		if o.Model != "" {
			base.Model = o.Model
		}
		if o.Temperature != nil {
			if *o.Temperature < 0 || *o.Temperature > 2 {
				return nil, fmt.Errorf("agent %s: temperature %v out of range [0,2]", name, *o.Temperature)
			}
			base.Temperature = *o.Temperature
		}
		if o.MaxTokens > 0 {
			base.MaxTokens = o.MaxTokens
		}
		agents[name] = base
	}

	slog.Debug("config.LoadAgents: agent settings loaded", "path", path, "agents", len(agents))
	return agents, nil
}
