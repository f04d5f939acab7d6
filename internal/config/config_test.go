package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAgents_EmptyPathReturnsDefaults(t *testing.T) {
	agents, err := LoadAgents("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := agents.Get(AgentRouting); got.Temperature != 0.3 || got.MaxTokens != 200 {
		t.Errorf("unexpected routing defaults: %+v", got)
	}
	if got := agents.Get(AgentSafety).Model; got != "" {
		t.Errorf("built-in settings should defer to the client model, got %q", got)
	}
}

func TestLoadAgents_Overrides(t *testing.T) {
	path := writeConfig(t, `
default_model: gpt-4o
agents:
  safety:
    max_tokens: 700
  creative:
    model: gpt-4.1-mini
    temperature: 0
  unknown_agent:
    model: ignored
`)
	agents, err := LoadAgents(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	safety := agents.Get(AgentSafety)
	if safety.Model != "gpt-4o" || safety.MaxTokens != 700 || safety.Temperature != 0 {
		t.Errorf("unexpected safety settings: %+v", safety)
	}
	creative := agents.Get(AgentCreative)
	if creative.Model != "gpt-4.1-mini" || creative.Temperature != 0 || creative.MaxTokens != 1000 {
		t.Errorf("unexpected creative settings: %+v", creative)
	}
	if _, ok := agents["unknown_agent"]; ok {
		t.Error("unknown agent should not be added")
	}
}

func TestLoadAgents_OmittedTemperatureKeepsDefault(t *testing.T) {
	path := writeConfig(t, "agents:\n  emotional:\n    max_tokens: 900\n")
	agents, err := LoadAgents(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := agents.Get(AgentEmotional); got.Temperature != 0.7 || got.MaxTokens != 900 {
		t.Errorf("unexpected emotional settings: %+v", got)
	}
}

func TestLoadAgents_Errors(t *testing.T) {
	if _, err := LoadAgents(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadAgents(writeConfig(t, "agents: [not, a, map")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := LoadAgents(writeConfig(t, "agents:\n  routing:\n    temperature: 5\n")); err == nil {
		t.Error("expected error for out of range temperature")
	}
}
